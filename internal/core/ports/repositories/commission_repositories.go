package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// CommissionFilter narrows commission listings.
type CommissionFilter struct {
	ConsultantID   *string
	State          *domain.CommissionState
	CommissionType *domain.CommissionType
	ParentID       *string
}

// CommissionReader defines read operations for commissions.
type CommissionReader interface {
	// FindCommissionByID retrieves a commission outside of any transaction.
	FindCommissionByID(ctx context.Context, commissionID string) (*domain.Commission, error)

	// ListCommissions returns one page ordered by transaction_date DESC, created_at DESC.
	ListCommissions(ctx context.Context, filter CommissionFilter, limit int, nextToken *string) ([]domain.Commission, *string, error)

	// ListOverridesByParent returns every override derived from a base commission.
	ListOverridesByParent(ctx context.Context, parentID string) ([]domain.Commission, error)

	// ListSubmittedForApprover returns submitted commissions whose approval record names approverID.
	ListSubmittedForApprover(ctx context.Context, approverID string) ([]domain.Commission, error)
}

// CommissionWriter defines the transactional operations on commissions.
type CommissionWriter interface {
	// SaveCommission inserts a commission. A duplicate reference number is ErrDuplicate.
	SaveCommission(ctx context.Context, tx pgx.Tx, commission domain.Commission) error

	// FindCommissionByIDForUpdate locks and returns a commission.
	FindCommissionByIDForUpdate(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.Commission, error)

	// FindSubmittedOverridesForUpdate locks the submitted overrides of a base commission.
	FindSubmittedOverridesForUpdate(ctx context.Context, tx pgx.Tx, parentID string) ([]domain.Commission, error)

	// UpdateCommissionState persists the state-machine fields of a commission.
	UpdateCommissionState(ctx context.Context, tx pgx.Tx, commission domain.Commission) error
}

// SettlementPool is the commission side of payout generation and release.
type SettlementPool interface {
	// FindEligibleForUpdate locks approved commissions that have no line item, skipping rows
	// another transaction has already locked. Ordered by consultant, then transaction date.
	FindEligibleForUpdate(ctx context.Context, tx pgx.Tx) ([]domain.Commission, error)

	// FindCommissionsByIDsForUpdate locks the given commissions.
	FindCommissionsByIDsForUpdate(ctx context.Context, tx pgx.Tx, commissionIDs []string) ([]domain.Commission, error)

	// MarkCommissionsPaid flips approved commissions to paid and returns how many rows changed.
	MarkCommissionsPaid(ctx context.Context, tx pgx.Tx, commissionIDs []string, actorID string, paidAt time.Time) (int64, error)
}

// CommissionRepositoryWithTx combines commission repository interfaces with transactions.
type CommissionRepositoryWithTx interface {
	CommissionReader
	CommissionWriter
	SettlementPool
	TransactionManager
}
