package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AnalyticsReader runs the aggregate queries behind dashboards and rollups.
type AnalyticsReader interface {
	CommissionTotalsByState(ctx context.Context, consultantID *string) ([]domain.StateTotal, error)
	PaidTotalSince(ctx context.Context, consultantID string, since time.Time) (decimal.Decimal, error)
	BatchTotalsByStatus(ctx context.Context) ([]domain.BatchStatusTotal, error)
	OpenPaymentTotals(ctx context.Context) (int, decimal.Decimal, error)
	OpenDiscrepancyCount(ctx context.Context) (int, error)

	// CommissionStateTotalsForDate groups commissions with the given transaction date by
	// consultant and state.
	CommissionStateTotalsForDate(ctx context.Context, date time.Time) (map[string][]domain.StateTotal, error)
	// PayoutSummaryForDate summarises batches whose run date is date.
	PayoutSummaryForDate(ctx context.Context, date time.Time) (*domain.PayoutSummary, error)
}

// AnalyticsWriter stores append-only snapshots.
type AnalyticsWriter interface {
	// InsertCommissionMetrics inserts snapshots, skipping ones already present for the
	// same (date, scope, scope id). Returns rows inserted.
	InsertCommissionMetrics(ctx context.Context, metrics []domain.CommissionMetric) (int64, error)
	InsertPayoutSummary(ctx context.Context, summary domain.PayoutSummary) (int64, error)
}

// AnalyticsRepositoryFacade combines analytics interfaces.
type AnalyticsRepositoryFacade interface {
	AnalyticsReader
	AnalyticsWriter
}
