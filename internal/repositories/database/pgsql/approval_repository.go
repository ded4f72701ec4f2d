package pgsql

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxApprovalRepository stores approval records and their append-only history.
type PgxApprovalRepository struct {
	BaseRepository
}

func newPgxApprovalRepository(pool *pgxpool.Pool) portsrepo.ApprovalRepositoryFacade {
	return &PgxApprovalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ApprovalRepositoryFacade = (*PgxApprovalRepository)(nil)

const approvalColumns = `approval_id, commission_id, assigned_approver_id, approver_role, created_at`

func scanApproval(row pgx.Row) (domain.CommissionApproval, error) {
	var a domain.CommissionApproval
	err := row.Scan(&a.ApprovalID, &a.CommissionID, &a.AssignedApproverID, &a.ApproverRole, &a.CreatedAt)
	return a, err
}

func (r *PgxApprovalRepository) FindApprovalByCommissionID(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.CommissionApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM commission_approvals WHERE commission_id = $1;`
	a, err := scanApproval(r.db(tx).QueryRow(ctx, query, commissionID))
	if err != nil {
		return nil, notFoundOr(err, "approval for commission", commissionID)
	}
	return &a, nil
}

func (r *PgxApprovalRepository) FindApprovalsByCommissionIDs(ctx context.Context, tx pgx.Tx, commissionIDs []string) (map[string]domain.CommissionApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM commission_approvals WHERE commission_id = ANY($1);`
	rows, err := r.db(tx).Query(ctx, query, commissionIDs)
	if err != nil {
		return nil, mapDBError(err, "query approvals")
	}
	approvals, err := collect(rows, func(rows pgx.Rows) (domain.CommissionApproval, error) { return scanApproval(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan approvals")
	}
	out := make(map[string]domain.CommissionApproval, len(approvals))
	for _, a := range approvals {
		out[a.CommissionID] = a
	}
	return out, nil
}

func (r *PgxApprovalRepository) SaveApproval(ctx context.Context, tx pgx.Tx, approval domain.CommissionApproval) error {
	query := `INSERT INTO commission_approvals (` + approvalColumns + `) VALUES ($1, $2, $3, $4, $5);`
	_, err := tx.Exec(ctx, query,
		approval.ApprovalID, approval.CommissionID, approval.AssignedApproverID, approval.ApproverRole, approval.CreatedAt,
	)
	return mapDBError(err, "save approval for commission "+approval.CommissionID)
}

// AppendApprovalHistory queues every entry in one batch.
func (r *PgxApprovalRepository) AppendApprovalHistory(ctx context.Context, tx pgx.Tx, entries ...domain.ApprovalHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO approval_history (history_id, approval_id, commission_id, action, actor_id, from_state, to_state, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	for _, e := range entries {
		batch.Queue(query,
			e.HistoryID, e.ApprovalID, e.CommissionID, string(e.Action), e.ActorID,
			string(e.FromState), string(e.ToState), e.Notes, e.CreatedAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	return mapDBError(br.Close(), "append approval history")
}

// ListApprovalHistory orders by the bigserial seq column so entries written in the same
// instant keep their insertion order.
func (r *PgxApprovalRepository) ListApprovalHistory(ctx context.Context, commissionID string) ([]domain.ApprovalHistoryEntry, error) {
	query := `
		SELECT history_id, approval_id, commission_id, action, actor_id, from_state, to_state, notes, created_at
		FROM approval_history
		WHERE commission_id = $1
		ORDER BY seq;
	`
	rows, err := r.Pool.Query(ctx, query, commissionID)
	if err != nil {
		return nil, mapDBError(err, "query approval history")
	}
	entries, err := collect(rows, func(rows pgx.Rows) (domain.ApprovalHistoryEntry, error) {
		var e domain.ApprovalHistoryEntry
		err := rows.Scan(&e.HistoryID, &e.ApprovalID, &e.CommissionID, &e.Action, &e.ActorID, &e.FromState, &e.ToState, &e.Notes, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, mapDBError(err, "scan approval history")
	}
	return entries, nil
}
