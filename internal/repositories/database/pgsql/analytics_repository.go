package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxAnalyticsRepository runs read-only aggregates and appends daily snapshots.
// Commission totals are attributed to the payee: the manager for overrides and override
// adjustments, the consultant otherwise.
type PgxAnalyticsRepository struct {
	BaseRepository
}

func newPgxAnalyticsRepository(pool *pgxpool.Pool) portsrepo.AnalyticsRepositoryFacade {
	return &PgxAnalyticsRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AnalyticsRepositoryFacade = (*PgxAnalyticsRepository)(nil)

func (r *PgxAnalyticsRepository) CommissionTotalsByState(ctx context.Context, consultantID *string) ([]domain.StateTotal, error) {
	query := `
		SELECT state, COUNT(*), COALESCE(SUM(calculated_amount), 0)
		FROM commissions
		WHERE ($1::text IS NULL OR COALESCE(manager_id, consultant_id) = $1)
		GROUP BY state
		ORDER BY state;
	`
	rows, err := r.Pool.Query(ctx, query, consultantID)
	if err != nil {
		return nil, mapDBError(err, "query commission totals")
	}
	totals, err := collect(rows, func(rows pgx.Rows) (domain.StateTotal, error) {
		var t domain.StateTotal
		return t, rows.Scan(&t.State, &t.Count, &t.Amount)
	})
	if err != nil {
		return nil, mapDBError(err, "scan commission totals")
	}
	return totals, nil
}

func (r *PgxAnalyticsRepository) PaidTotalSince(ctx context.Context, consultantID string, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(net_amount), 0)
		FROM payouts
		WHERE consultant_id = $1 AND status = $2 AND paid_at >= $3;
	`
	if err := r.Pool.QueryRow(ctx, query, consultantID, string(domain.PayoutPaid), since).Scan(&total); err != nil {
		return decimal.Zero, mapDBError(err, "sum paid payouts for "+consultantID)
	}
	return total, nil
}

func (r *PgxAnalyticsRepository) BatchTotalsByStatus(ctx context.Context) ([]domain.BatchStatusTotal, error) {
	query := `
		SELECT b.status, COUNT(DISTINCT b.batch_id), COALESCE(SUM(p.net_amount), 0)
		FROM payout_batches b
		LEFT JOIN payouts p ON p.batch_id = b.batch_id
		GROUP BY b.status
		ORDER BY b.status;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, mapDBError(err, "query batch totals")
	}
	totals, err := collect(rows, func(rows pgx.Rows) (domain.BatchStatusTotal, error) {
		var t domain.BatchStatusTotal
		return t, rows.Scan(&t.Status, &t.BatchCount, &t.NetAmount)
	})
	if err != nil {
		return nil, mapDBError(err, "scan batch totals")
	}
	return totals, nil
}

func (r *PgxAnalyticsRepository) OpenPaymentTotals(ctx context.Context) (int, decimal.Decimal, error) {
	var n int
	var total decimal.Decimal
	query := `SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM payment_transactions WHERE status IN ($1, $2);`
	err := r.Pool.QueryRow(ctx, query, string(domain.PaymentPending), string(domain.PaymentProcessing)).Scan(&n, &total)
	if err != nil {
		return 0, decimal.Zero, mapDBError(err, "sum open payments")
	}
	return n, total, nil
}

func (r *PgxAnalyticsRepository) OpenDiscrepancyCount(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM payment_reconciliations WHERE status = $1;`
	if err := r.Pool.QueryRow(ctx, query, string(domain.ReconciliationDiscrepancy)).Scan(&n); err != nil {
		return 0, mapDBError(err, "count open discrepancies")
	}
	return n, nil
}

func (r *PgxAnalyticsRepository) CommissionStateTotalsForDate(ctx context.Context, date time.Time) (map[string][]domain.StateTotal, error) {
	query := `
		SELECT COALESCE(manager_id, consultant_id) AS payee_id, state, COUNT(*), COALESCE(SUM(calculated_amount), 0)
		FROM commissions
		WHERE transaction_date = $1
		GROUP BY payee_id, state
		ORDER BY payee_id, state;
	`
	rows, err := r.Pool.Query(ctx, query, domain.DateOnly(date))
	if err != nil {
		return nil, mapDBError(err, "query commission totals for date")
	}
	defer rows.Close()

	out := make(map[string][]domain.StateTotal)
	for rows.Next() {
		var payeeID string
		var t domain.StateTotal
		if err := rows.Scan(&payeeID, &t.State, &t.Count, &t.Amount); err != nil {
			return nil, mapDBError(err, "scan commission totals for date")
		}
		out[payeeID] = append(out[payeeID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError(err, "iterate commission totals for date")
	}
	return out, nil
}

// PayoutSummaryForDate ignores void batches.
func (r *PgxAnalyticsRepository) PayoutSummaryForDate(ctx context.Context, date time.Time) (*domain.PayoutSummary, error) {
	day := domain.DateOnly(date)
	query := `
		SELECT COUNT(DISTINCT b.batch_id),
		       COUNT(p.payout_id),
		       COALESCE(SUM(p.net_amount), 0),
		       COALESCE(SUM(p.net_amount) FILTER (WHERE p.status = $3), 0),
		       COALESCE(SUM(p.net_amount) FILTER (WHERE p.status <> $3), 0)
		FROM payout_batches b
		LEFT JOIN payouts p ON p.batch_id = b.batch_id
		WHERE b.run_date >= $1 AND b.run_date < $2 AND b.status <> $4;
	`
	s := domain.PayoutSummary{SummaryDate: day}
	err := r.Pool.QueryRow(ctx, query, day, day.AddDate(0, 0, 1), string(domain.PayoutPaid), string(domain.BatchVoid)).
		Scan(&s.BatchCount, &s.PayoutCount, &s.TotalAmount, &s.PaidAmount, &s.PendingAmount)
	if err != nil {
		return nil, mapDBError(err, "summarise payouts for date")
	}
	return &s, nil
}

// InsertCommissionMetrics skips snapshots already stored for (metric_date, scope, scope_id).
func (r *PgxAnalyticsRepository) InsertCommissionMetrics(ctx context.Context, metrics []domain.CommissionMetric) (int64, error) {
	if len(metrics) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO commission_metrics (metric_date, scope, scope_id, total_count, total_amount,
			approved_count, approved_amount, pending_count, pending_amount, rejected_count, rejected_amount,
			paid_count, paid_amount, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (metric_date, scope, scope_id) DO NOTHING;
	`
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(query, m.MetricDate, string(m.Scope), m.ScopeID, m.TotalCount, m.TotalAmount,
			m.ApprovedCount, m.ApprovedAmount, m.PendingCount, m.PendingAmount, m.RejectedCount, m.RejectedAmount,
			m.PaidCount, m.PaidAmount, m.ComputedAt)
	}
	br := r.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range metrics {
		cmdTag, err := br.Exec()
		if err != nil {
			return inserted, mapDBError(err, "insert commission metrics")
		}
		inserted += cmdTag.RowsAffected()
	}
	return inserted, mapDBError(br.Close(), "insert commission metrics")
}

func (r *PgxAnalyticsRepository) InsertPayoutSummary(ctx context.Context, s domain.PayoutSummary) (int64, error) {
	query := `
		INSERT INTO payout_summaries (summary_date, batch_count, payout_count, total_amount, paid_amount, pending_amount, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (summary_date) DO NOTHING;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, s.SummaryDate, s.BatchCount, s.PayoutCount, s.TotalAmount, s.PaidAmount, s.PendingAmount, s.ComputedAt)
	if err != nil {
		return 0, mapDBError(err, "insert payout summary")
	}
	return cmdTag.RowsAffected(), nil
}
