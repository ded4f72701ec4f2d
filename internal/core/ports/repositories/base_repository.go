package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager scopes one state-changing operation. Reads that decide a transition
// (row locks, eligible-pool claims) take the same tx as the writes they guard, and
// callers defer Rollback right after Begin.
type TransactionManager interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, tx pgx.Tx) error
	// Rollback after Commit is a no-op, so the deferred call is always safe.
	Rollback(ctx context.Context, tx pgx.Tx) error
}
