package pgsql

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/SscSPs/onesuite_backend/internal/models"
	"github.com/SscSPs/onesuite_backend/internal/utils/mapping"
	"github.com/SscSPs/onesuite_backend/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCommissionRepository struct {
	BaseRepository
}

func newPgxCommissionRepository(pool *pgxpool.Pool) portsrepo.CommissionRepositoryWithTx {
	return &PgxCommissionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CommissionRepositoryWithTx = (*PgxCommissionRepository)(nil)

// Every query aliases commissions as c.
const commissionColumns = `c.commission_id, c.commission_type, c.consultant_id, c.parent_commission_id,
	c.manager_id, c.override_level, c.adjustment_for_id, c.transaction_date, c.sale_amount, c.gst_rate,
	c.commission_rate, c.calculated_amount, c.state, c.reference_number, c.client_name, c.notes,
	c.approved_by, c.approved_at, c.paid_at, c.rejection_reason,
	c.created_at, c.created_by, c.last_updated_at, c.last_updated_by`

func scanCommission(row pgx.Row) (models.Commission, error) {
	var m models.Commission
	err := row.Scan(
		&m.CommissionID, &m.CommissionType, &m.ConsultantID, &m.ParentCommissionID,
		&m.ManagerID, &m.OverrideLevel, &m.AdjustmentForID, &m.TransactionDate, &m.SaleAmount, &m.GSTRate,
		&m.CommissionRate, &m.CalculatedAmount, &m.State, &m.ReferenceNumber, &m.ClientName, &m.Notes,
		&m.ApprovedBy, &m.ApprovedAt, &m.PaidAt, &m.RejectionReason,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxCommissionRepository) findOne(ctx context.Context, q querier, commissionID, query string) (*domain.Commission, error) {
	m, err := scanCommission(q.QueryRow(ctx, query, commissionID))
	if err != nil {
		return nil, notFoundOr(err, "commission", commissionID)
	}
	c, err := mapping.ToDomainCommission(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "malformed commission row", err)
	}
	return &c, nil
}

func (r *PgxCommissionRepository) list(ctx context.Context, q querier, query string, args ...any) ([]domain.Commission, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err, "query commissions")
	}
	ms, err := collect(rows, func(rows pgx.Rows) (models.Commission, error) { return scanCommission(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan commissions")
	}
	cs, err := mapping.ToDomainCommissionSlice(ms)
	if err != nil {
		return nil, apperrors.NewAppError(500, "malformed commission row", err)
	}
	return cs, nil
}

func (r *PgxCommissionRepository) FindCommissionByID(ctx context.Context, commissionID string) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions c WHERE c.commission_id = $1;`
	return r.findOne(ctx, r.Pool, commissionID, query)
}

// ListCommissions pages with a (transaction_date, created_at, commission_id) cursor.
func (r *PgxCommissionRepository) ListCommissions(ctx context.Context, filter portsrepo.CommissionFilter, limit int, nextToken *string) ([]domain.Commission, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.ConsultantID != nil {
		add("c.consultant_id = ?", *filter.ConsultantID)
	}
	if filter.State != nil {
		add("c.state = ?", string(*filter.State))
	}
	if filter.CommissionType != nil {
		add("c.commission_type = ?", string(*filter.CommissionType))
	}
	if filter.ParentID != nil {
		add("c.parent_commission_id = ?", *filter.ParentID)
	}
	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("nextToken", "is malformed")
		}
		args = append(args, lastDate, lastCreatedAt, lastID)
		n := len(args)
		conds = append(conds, "(c.transaction_date, c.created_at, c.commission_id) < ($"+
			strconv.Itoa(n-2)+", $"+strconv.Itoa(n-1)+", $"+strconv.Itoa(n)+")")
	}

	query := `SELECT ` + commissionColumns + ` FROM commissions c`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit+1)
	query += " ORDER BY c.transaction_date DESC, c.created_at DESC, c.commission_id DESC LIMIT $" + strconv.Itoa(len(args)) + ";"

	cs, err := r.list(ctx, r.Pool, query, args...)
	if err != nil {
		return nil, nil, err
	}
	var next *string
	if len(cs) > limit {
		cs = cs[:limit]
		last := cs[limit-1]
		token := pagination.EncodeToken(last.TransactionDate, last.CreatedAt, last.CommissionID)
		next = &token
	}
	return cs, next, nil
}

func (r *PgxCommissionRepository) ListOverridesByParent(ctx context.Context, parentID string) ([]domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions c WHERE c.parent_commission_id = $1 ORDER BY c.override_level;`
	return r.list(ctx, r.Pool, query, parentID)
}

func (r *PgxCommissionRepository) ListSubmittedForApprover(ctx context.Context, approverID string) ([]domain.Commission, error) {
	query := `
		SELECT ` + commissionColumns + `
		FROM commissions c
		JOIN commission_approvals a ON a.commission_id = c.commission_id
		WHERE c.state = $1 AND a.assigned_approver_id = $2
		ORDER BY c.reference_number;
	`
	return r.list(ctx, r.Pool, query, string(domain.CommissionSubmitted), approverID)
}

func (r *PgxCommissionRepository) SaveCommission(ctx context.Context, tx pgx.Tx, commission domain.Commission) error {
	m := mapping.ToModelCommission(commission)
	query := `
		INSERT INTO commissions (commission_id, commission_type, consultant_id, parent_commission_id,
			manager_id, override_level, adjustment_for_id, transaction_date, sale_amount, gst_rate,
			commission_rate, calculated_amount, state, reference_number, client_name, notes,
			approved_by, approved_at, paid_at, rejection_reason,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24);
	`
	_, err := tx.Exec(ctx, query,
		m.CommissionID, m.CommissionType, m.ConsultantID, m.ParentCommissionID,
		m.ManagerID, m.OverrideLevel, m.AdjustmentForID, m.TransactionDate, m.SaleAmount, m.GSTRate,
		m.CommissionRate, m.CalculatedAmount, m.State, m.ReferenceNumber, m.ClientName, m.Notes,
		m.ApprovedBy, m.ApprovedAt, m.PaidAt, m.RejectionReason,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	return mapDBError(err, "save commission "+m.ReferenceNumber)
}

func (r *PgxCommissionRepository) FindCommissionByIDForUpdate(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions c WHERE c.commission_id = $1 FOR UPDATE;`
	return r.findOne(ctx, tx, commissionID, query)
}

func (r *PgxCommissionRepository) FindSubmittedOverridesForUpdate(ctx context.Context, tx pgx.Tx, parentID string) ([]domain.Commission, error) {
	query := `
		SELECT ` + commissionColumns + `
		FROM commissions c
		WHERE c.parent_commission_id = $1 AND c.state = $2
		ORDER BY c.override_level
		FOR UPDATE;
	`
	return r.list(ctx, tx, query, parentID, string(domain.CommissionSubmitted))
}

func (r *PgxCommissionRepository) UpdateCommissionState(ctx context.Context, tx pgx.Tx, commission domain.Commission) error {
	query := `
		UPDATE commissions
		SET state = $2, approved_by = $3, approved_at = $4, paid_at = $5, rejection_reason = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE commission_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query,
		commission.CommissionID, string(commission.State), commission.ApprovedBy, commission.ApprovedAt,
		commission.PaidAt, commission.RejectionReason, commission.LastUpdatedAt, commission.LastUpdatedBy,
	)
	if err != nil {
		return mapDBError(err, "update commission "+commission.CommissionID)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "commission", commission.CommissionID)
	}
	return nil
}

// FindEligibleForUpdate skips rows locked by a concurrent generation run, so two runs
// never claim the same commission.
func (r *PgxCommissionRepository) FindEligibleForUpdate(ctx context.Context, tx pgx.Tx) ([]domain.Commission, error) {
	query := `
		SELECT ` + commissionColumns + `
		FROM commissions c
		WHERE c.state = $1
		  AND NOT EXISTS (SELECT 1 FROM payout_line_items li WHERE li.commission_id = c.commission_id)
		ORDER BY COALESCE(c.manager_id, c.consultant_id), c.transaction_date, c.reference_number
		FOR UPDATE OF c SKIP LOCKED;
	`
	return r.list(ctx, tx, query, string(domain.CommissionApproved))
}

func (r *PgxCommissionRepository) FindCommissionsByIDsForUpdate(ctx context.Context, tx pgx.Tx, commissionIDs []string) ([]domain.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commissions c WHERE c.commission_id = ANY($1) ORDER BY c.commission_id FOR UPDATE;`
	return r.list(ctx, tx, query, commissionIDs)
}

func (r *PgxCommissionRepository) MarkCommissionsPaid(ctx context.Context, tx pgx.Tx, commissionIDs []string, actorID string, paidAt time.Time) (int64, error) {
	query := `
		UPDATE commissions
		SET state = $2, paid_at = $4, last_updated_at = $4, last_updated_by = $5
		WHERE commission_id = ANY($1) AND state = $3;
	`
	cmdTag, err := tx.Exec(ctx, query, commissionIDs, string(domain.CommissionPaid), string(domain.CommissionApproved), paidAt, actorID)
	if err != nil {
		return 0, mapDBError(err, "mark commissions paid")
	}
	return cmdTag.RowsAffected(), nil
}
