package pgsql

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxSettlementRepository persists periods, batches, payouts, line items and the batch
// history. A unique constraint on payout_line_items(commission_id) is what guarantees a
// commission is never paid twice.
type PgxSettlementRepository struct {
	BaseRepository
}

func newPgxSettlementRepository(pool *pgxpool.Pool) portsrepo.SettlementRepositoryWithTx {
	return &PgxSettlementRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SettlementRepositoryWithTx = (*PgxSettlementRepository)(nil)

// --- Periods ---

const periodColumns = `period_id, name, start_date, end_date, status, is_tax_year_end,
	created_at, created_by, last_updated_at, last_updated_by`

func scanPeriod(row pgx.Row) (domain.PayoutPeriod, error) {
	var p domain.PayoutPeriod
	err := row.Scan(&p.PeriodID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.IsTaxYearEnd,
		&p.CreatedAt, &p.CreatedBy, &p.LastUpdatedAt, &p.LastUpdatedBy)
	return p, err
}

func (r *PgxSettlementRepository) SavePeriod(ctx context.Context, period domain.PayoutPeriod) error {
	query := `INSERT INTO payout_periods (` + periodColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err := r.Pool.Exec(ctx, query,
		period.PeriodID, period.Name, period.StartDate, period.EndDate, string(period.Status), period.IsTaxYearEnd,
		period.CreatedAt, period.CreatedBy, period.LastUpdatedAt, period.LastUpdatedBy,
	)
	return mapDBError(err, "save payout period "+period.Name)
}

func (r *PgxSettlementRepository) FindPeriodByID(ctx context.Context, tx pgx.Tx, periodID string) (*domain.PayoutPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM payout_periods WHERE period_id = $1;`
	p, err := scanPeriod(r.db(tx).QueryRow(ctx, query, periodID))
	if err != nil {
		return nil, notFoundOr(err, "payout period", periodID)
	}
	return &p, nil
}

func (r *PgxSettlementRepository) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.PayoutPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM payout_periods WHERE ($1::text IS NULL OR status = $1) ORDER BY start_date DESC;`
	var arg *string
	if status != nil {
		s := string(*status)
		arg = &s
	}
	rows, err := r.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, mapDBError(err, "query payout periods")
	}
	periods, err := collect(rows, func(rows pgx.Rows) (domain.PayoutPeriod, error) { return scanPeriod(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan payout periods")
	}
	return periods, nil
}

func (r *PgxSettlementRepository) UpdatePeriod(ctx context.Context, period domain.PayoutPeriod) error {
	query := `
		UPDATE payout_periods
		SET name = $2, start_date = $3, end_date = $4, status = $5, is_tax_year_end = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE period_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		period.PeriodID, period.Name, period.StartDate, period.EndDate, string(period.Status), period.IsTaxYearEnd,
		period.LastUpdatedAt, period.LastUpdatedBy,
	)
	if err != nil {
		return mapDBError(err, "update payout period "+period.PeriodID)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "payout period", period.PeriodID)
	}
	return nil
}

// --- Batches ---

const batchColumns = `batch_id, period_id, reference_number, run_date, status, released_at, notes,
	created_at, created_by, last_updated_at, last_updated_by`

func scanBatch(row pgx.Row) (domain.PayoutBatch, error) {
	var b domain.PayoutBatch
	err := row.Scan(&b.BatchID, &b.PeriodID, &b.ReferenceNumber, &b.RunDate, &b.Status, &b.ReleasedAt, &b.Notes,
		&b.CreatedAt, &b.CreatedBy, &b.LastUpdatedAt, &b.LastUpdatedBy)
	return b, err
}

func (r *PgxSettlementRepository) SaveBatch(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch) error {
	query := `INSERT INTO payout_batches (` + batchColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	_, err := tx.Exec(ctx, query,
		batch.BatchID, batch.PeriodID, batch.ReferenceNumber, batch.RunDate, string(batch.Status), batch.ReleasedAt, batch.Notes,
		batch.CreatedAt, batch.CreatedBy, batch.LastUpdatedAt, batch.LastUpdatedBy,
	)
	return mapDBError(err, "save payout batch "+batch.ReferenceNumber)
}

func (r *PgxSettlementRepository) findBatch(ctx context.Context, q querier, batchID, query string) (*domain.PayoutBatch, error) {
	b, err := scanBatch(q.QueryRow(ctx, query, batchID))
	if err != nil {
		return nil, notFoundOr(err, "payout batch", batchID)
	}
	return &b, nil
}

func (r *PgxSettlementRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.PayoutBatch, error) {
	return r.findBatch(ctx, r.Pool, batchID, `SELECT `+batchColumns+` FROM payout_batches WHERE batch_id = $1;`)
}

func (r *PgxSettlementRepository) FindBatchByIDForUpdate(ctx context.Context, tx pgx.Tx, batchID string) (*domain.PayoutBatch, error) {
	return r.findBatch(ctx, tx, batchID, `SELECT `+batchColumns+` FROM payout_batches WHERE batch_id = $1 FOR UPDATE;`)
}

func (r *PgxSettlementRepository) UpdateBatchStatus(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch) error {
	query := `
		UPDATE payout_batches
		SET status = $2, released_at = $3, notes = $4, last_updated_at = $5, last_updated_by = $6
		WHERE batch_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query,
		batch.BatchID, string(batch.Status), batch.ReleasedAt, batch.Notes, batch.LastUpdatedAt, batch.LastUpdatedBy,
	)
	if err != nil {
		return mapDBError(err, "update payout batch "+batch.BatchID)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "payout batch", batch.BatchID)
	}
	return nil
}

func (r *PgxSettlementRepository) ListBatches(ctx context.Context, periodID *string, status *domain.BatchStatus) ([]domain.PayoutBatch, error) {
	var conds []string
	var args []any
	if periodID != nil {
		args = append(args, *periodID)
		conds = append(conds, "period_id = $"+strconv.Itoa(len(args)))
	}
	if status != nil {
		args = append(args, string(*status))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + batchColumns + ` FROM payout_batches`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY run_date DESC, reference_number DESC;"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err, "query payout batches")
	}
	batches, err := collect(rows, func(rows pgx.Rows) (domain.PayoutBatch, error) { return scanBatch(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan payout batches")
	}
	return batches, nil
}

// --- Payouts ---

const payoutColumns = `payout_id, batch_id, consultant_id, total_commission, total_adjustment, total_tax,
	net_amount, status, payment_reference, paid_at, created_at, created_by, last_updated_at, last_updated_by`

func scanPayout(row pgx.Row) (domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(&p.PayoutID, &p.BatchID, &p.ConsultantID, &p.TotalCommission, &p.TotalAdjustment, &p.TotalTax,
		&p.NetAmount, &p.Status, &p.PaymentReference, &p.PaidAt, &p.CreatedAt, &p.CreatedBy, &p.LastUpdatedAt, &p.LastUpdatedBy)
	return p, err
}

// UpsertPayout relies on the (batch_id, consultant_id) unique key. The no-op update makes
// RETURNING yield the existing row on conflict.
func (r *PgxSettlementRepository) UpsertPayout(ctx context.Context, tx pgx.Tx, payout domain.Payout) (*domain.Payout, error) {
	query := `
		INSERT INTO payouts (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (batch_id, consultant_id) DO UPDATE SET batch_id = EXCLUDED.batch_id
		RETURNING ` + payoutColumns + `;
	`
	p, err := scanPayout(tx.QueryRow(ctx, query,
		payout.PayoutID, payout.BatchID, payout.ConsultantID, payout.TotalCommission, payout.TotalAdjustment, payout.TotalTax,
		payout.NetAmount, string(payout.Status), payout.PaymentReference, payout.PaidAt,
		payout.CreatedAt, payout.CreatedBy, payout.LastUpdatedAt, payout.LastUpdatedBy,
	))
	if err != nil {
		return nil, mapDBError(err, "upsert payout for "+payout.ConsultantID)
	}
	return &p, nil
}

func (r *PgxSettlementRepository) UpdatePayoutTotals(ctx context.Context, tx pgx.Tx, payout domain.Payout) error {
	query := `
		UPDATE payouts
		SET total_commission = $2, total_adjustment = $3, total_tax = $4, net_amount = $5,
		    last_updated_at = $6, last_updated_by = $7
		WHERE payout_id = $1;
	`
	_, err := tx.Exec(ctx, query,
		payout.PayoutID, payout.TotalCommission, payout.TotalAdjustment, payout.TotalTax, payout.NetAmount,
		payout.LastUpdatedAt, payout.LastUpdatedBy,
	)
	return mapDBError(err, "update payout totals "+payout.PayoutID)
}

func (r *PgxSettlementRepository) ListPayoutsByBatch(ctx context.Context, tx pgx.Tx, batchID string) ([]domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE batch_id = $1 ORDER BY consultant_id;`
	rows, err := r.db(tx).Query(ctx, query, batchID)
	if err != nil {
		return nil, mapDBError(err, "query payouts of batch "+batchID)
	}
	payouts, err := collect(rows, func(rows pgx.Rows) (domain.Payout, error) { return scanPayout(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan payouts of batch "+batchID)
	}
	return payouts, nil
}

func (r *PgxSettlementRepository) CountPayoutsByBatch(ctx context.Context, tx pgx.Tx, batchID string) (int, error) {
	var n int
	query := `
		SELECT COUNT(*) FROM payouts p
		WHERE p.batch_id = $1
		  AND EXISTS (SELECT 1 FROM payout_line_items li WHERE li.payout_id = p.payout_id);
	`
	if err := r.db(tx).QueryRow(ctx, query, batchID).Scan(&n); err != nil {
		return 0, mapDBError(err, "count payouts of batch "+batchID)
	}
	return n, nil
}

func (r *PgxSettlementRepository) DeletePayoutIfEmpty(ctx context.Context, tx pgx.Tx, payoutID string) (bool, error) {
	query := `
		DELETE FROM payouts p
		WHERE p.payout_id = $1
		  AND NOT EXISTS (SELECT 1 FROM payout_line_items li WHERE li.payout_id = p.payout_id);
	`
	cmdTag, err := tx.Exec(ctx, query, payoutID)
	if err != nil {
		return false, mapDBError(err, "delete empty payout "+payoutID)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *PgxSettlementRepository) MarkPayoutsPaid(ctx context.Context, tx pgx.Tx, batchID string, paidAt time.Time, actorID string) (int64, error) {
	query := `
		UPDATE payouts
		SET status = $2, paid_at = $3, last_updated_at = $3, last_updated_by = $4
		WHERE batch_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, batchID, string(domain.PayoutPaid), paidAt, actorID)
	if err != nil {
		return 0, mapDBError(err, "mark payouts paid for batch "+batchID)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *PgxSettlementRepository) StampPayoutPayment(ctx context.Context, tx pgx.Tx, batchID, paymentReference string, paidAt time.Time, actorID string) (int64, error) {
	query := `
		UPDATE payouts
		SET payment_reference = $2, paid_at = $3, last_updated_at = $3, last_updated_by = $4
		WHERE batch_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, batchID, paymentReference, paidAt, actorID)
	if err != nil {
		return 0, mapDBError(err, "stamp payment reference on batch "+batchID)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *PgxSettlementRepository) SumNetAmountByBatch(ctx context.Context, tx pgx.Tx, batchID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(net_amount), 0) FROM payouts WHERE batch_id = $1;`
	if err := r.db(tx).QueryRow(ctx, query, batchID).Scan(&total); err != nil {
		return decimal.Zero, mapDBError(err, "sum payouts of batch "+batchID)
	}
	return total, nil
}

func (r *PgxSettlementRepository) SumPaidNetForConsultantYear(ctx context.Context, tx pgx.Tx, consultantID string, year int) (decimal.Decimal, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(net_amount), 0)
		FROM payouts
		WHERE consultant_id = $1 AND status = $2 AND paid_at >= $3 AND paid_at < $4;
	`
	err := r.db(tx).QueryRow(ctx, query, consultantID, string(domain.PayoutPaid), start, start.AddDate(1, 0, 0)).Scan(&total)
	if err != nil {
		return decimal.Zero, mapDBError(err, "sum paid payouts for "+consultantID)
	}
	return total, nil
}

// --- Line items ---

const lineItemColumns = `line_item_id, payout_id, commission_id, amount, description, created_at`

func scanLineItem(row pgx.Row) (domain.PayoutLineItem, error) {
	var li domain.PayoutLineItem
	err := row.Scan(&li.LineItemID, &li.PayoutID, &li.CommissionID, &li.Amount, &li.Description, &li.CreatedAt)
	return li, err
}

func (r *PgxSettlementRepository) InsertLineItems(ctx context.Context, tx pgx.Tx, items []domain.PayoutLineItem) ([]domain.PayoutLineItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	query := `
		INSERT INTO payout_line_items (` + lineItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (commission_id) DO NOTHING
		RETURNING ` + lineItemColumns + `;
	`
	batch := &pgx.Batch{}
	for _, li := range items {
		batch.Queue(query, li.LineItemID, li.PayoutID, li.CommissionID, li.Amount, li.Description, li.CreatedAt)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	inserted := make([]domain.PayoutLineItem, 0, len(items))
	for range items {
		li, err := scanLineItem(br.QueryRow())
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, mapDBError(err, "insert payout line items")
		}
		inserted = append(inserted, li)
	}
	if err := br.Close(); err != nil {
		return nil, mapDBError(err, "insert payout line items")
	}
	return inserted, nil
}

func (r *PgxSettlementRepository) ListCommissionIDsByBatch(ctx context.Context, tx pgx.Tx, batchID string) ([]string, error) {
	query := `
		SELECT li.commission_id
		FROM payout_line_items li
		JOIN payouts p ON p.payout_id = li.payout_id
		WHERE p.batch_id = $1
		ORDER BY li.commission_id;
	`
	rows, err := r.db(tx).Query(ctx, query, batchID)
	if err != nil {
		return nil, mapDBError(err, "query line items of batch "+batchID)
	}
	ids, err := collect(rows, func(rows pgx.Rows) (string, error) {
		var id string
		return id, rows.Scan(&id)
	})
	if err != nil {
		return nil, mapDBError(err, "scan line items of batch "+batchID)
	}
	return ids, nil
}

func (r *PgxSettlementRepository) DeleteLineItemsByBatch(ctx context.Context, tx pgx.Tx, batchID string) (int64, error) {
	query := `
		DELETE FROM payout_line_items li
		USING payouts p
		WHERE li.payout_id = p.payout_id AND p.batch_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, batchID)
	if err != nil {
		return 0, mapDBError(err, "delete line items of batch "+batchID)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *PgxSettlementRepository) ListLineItemsByPayout(ctx context.Context, payoutID string) ([]domain.PayoutLineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM payout_line_items WHERE payout_id = $1 ORDER BY created_at, commission_id;`
	rows, err := r.Pool.Query(ctx, query, payoutID)
	if err != nil {
		return nil, mapDBError(err, "query line items of payout "+payoutID)
	}
	items, err := collect(rows, func(rows pgx.Rows) (domain.PayoutLineItem, error) { return scanLineItem(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan line items of payout "+payoutID)
	}
	return items, nil
}

// --- History ---

func (r *PgxSettlementRepository) AppendPayoutHistory(ctx context.Context, tx pgx.Tx, entry domain.PayoutHistoryEntry) error {
	query := `
		INSERT INTO payout_history (history_id, batch_id, action, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := tx.Exec(ctx, query, entry.HistoryID, entry.BatchID, string(entry.Action), entry.ActorID, entry.Notes, entry.CreatedAt)
	return mapDBError(err, "append payout history for batch "+entry.BatchID)
}

func (r *PgxSettlementRepository) ListPayoutHistory(ctx context.Context, batchID string) ([]domain.PayoutHistoryEntry, error) {
	query := `
		SELECT history_id, batch_id, action, actor_id, notes, created_at
		FROM payout_history
		WHERE batch_id = $1
		ORDER BY seq;
	`
	rows, err := r.Pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, mapDBError(err, "query payout history")
	}
	entries, err := collect(rows, func(rows pgx.Rows) (domain.PayoutHistoryEntry, error) {
		var e domain.PayoutHistoryEntry
		err := rows.Scan(&e.HistoryID, &e.BatchID, &e.Action, &e.ActorID, &e.Notes, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, mapDBError(err, "scan payout history")
	}
	return entries, nil
}
