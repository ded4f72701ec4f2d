package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PeriodRepository manages payout periods.
type PeriodRepository interface {
	SavePeriod(ctx context.Context, period domain.PayoutPeriod) error
	// FindPeriodByID reads a period, inside tx when non-nil.
	FindPeriodByID(ctx context.Context, tx pgx.Tx, periodID string) (*domain.PayoutPeriod, error)
	ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.PayoutPeriod, error)
	UpdatePeriod(ctx context.Context, period domain.PayoutPeriod) error
}

// BatchRepository manages payout batches.
type BatchRepository interface {
	SaveBatch(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch) error
	FindBatchByID(ctx context.Context, batchID string) (*domain.PayoutBatch, error)
	FindBatchByIDForUpdate(ctx context.Context, tx pgx.Tx, batchID string) (*domain.PayoutBatch, error)
	UpdateBatchStatus(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch) error
	ListBatches(ctx context.Context, periodID *string, status *domain.BatchStatus) ([]domain.PayoutBatch, error)
}

// PayoutRepository manages per-consultant payouts and their line items.
type PayoutRepository interface {
	// UpsertPayout gets or creates the payout for (batch, consultant).
	UpsertPayout(ctx context.Context, tx pgx.Tx, payout domain.Payout) (*domain.Payout, error)
	UpdatePayoutTotals(ctx context.Context, tx pgx.Tx, payout domain.Payout) error
	// ListPayoutsByBatch reads payouts, inside tx when non-nil.
	ListPayoutsByBatch(ctx context.Context, tx pgx.Tx, batchID string) ([]domain.Payout, error)
	// CountPayoutsByBatch counts payouts that settle at least one line item.
	CountPayoutsByBatch(ctx context.Context, tx pgx.Tx, batchID string) (int, error)
	// DeletePayoutIfEmpty removes a payout left without line items after losing every claim.
	DeletePayoutIfEmpty(ctx context.Context, tx pgx.Tx, payoutID string) (bool, error)
	MarkPayoutsPaid(ctx context.Context, tx pgx.Tx, batchID string, paidAt time.Time, actorID string) (int64, error)
	StampPayoutPayment(ctx context.Context, tx pgx.Tx, batchID, paymentReference string, paidAt time.Time, actorID string) (int64, error)
	SumNetAmountByBatch(ctx context.Context, tx pgx.Tx, batchID string) (decimal.Decimal, error)
	// SumPaidNetForConsultantYear totals PAID payouts with paid_at in the calendar year.
	SumPaidNetForConsultantYear(ctx context.Context, tx pgx.Tx, consultantID string, year int) (decimal.Decimal, error)

	// InsertLineItems inserts line items, silently skipping commissions that already have
	// one. It returns only the rows that were inserted.
	InsertLineItems(ctx context.Context, tx pgx.Tx, items []domain.PayoutLineItem) ([]domain.PayoutLineItem, error)
	ListCommissionIDsByBatch(ctx context.Context, tx pgx.Tx, batchID string) ([]string, error)
	DeleteLineItemsByBatch(ctx context.Context, tx pgx.Tx, batchID string) (int64, error)
	ListLineItemsByPayout(ctx context.Context, payoutID string) ([]domain.PayoutLineItem, error)
}

// PayoutHistoryWriter is insert-only.
type PayoutHistoryWriter interface {
	AppendPayoutHistory(ctx context.Context, tx pgx.Tx, entry domain.PayoutHistoryEntry) error
}

// PayoutHistoryReader reads the batch audit trail.
type PayoutHistoryReader interface {
	ListPayoutHistory(ctx context.Context, batchID string) ([]domain.PayoutHistoryEntry, error)
}

// SettlementRepositoryWithTx combines everything the settlement engine persists.
type SettlementRepositoryWithTx interface {
	PeriodRepository
	BatchRepository
	PayoutRepository
	PayoutHistoryWriter
	PayoutHistoryReader
	TransactionManager
}
