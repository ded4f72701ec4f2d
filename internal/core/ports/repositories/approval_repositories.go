package repositories

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// ApprovalRecordRepository manages the one-to-one approval record of a commission.
type ApprovalRecordRepository interface {
	// FindApprovalByCommissionID returns the record or apperrors.ErrNotFound.
	FindApprovalByCommissionID(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.CommissionApproval, error)

	// FindApprovalsByCommissionIDs returns existing records keyed by commission ID.
	FindApprovalsByCommissionIDs(ctx context.Context, tx pgx.Tx, commissionIDs []string) (map[string]domain.CommissionApproval, error)

	// SaveApproval inserts a record.
	SaveApproval(ctx context.Context, tx pgx.Tx, approval domain.CommissionApproval) error
}

// ApprovalHistoryWriter is insert-only. There is deliberately no update or delete.
type ApprovalHistoryWriter interface {
	AppendApprovalHistory(ctx context.Context, tx pgx.Tx, entries ...domain.ApprovalHistoryEntry) error
}

// ApprovalHistoryReader reads the audit trail.
type ApprovalHistoryReader interface {
	// ListApprovalHistory returns a commission's history in insertion order.
	ListApprovalHistory(ctx context.Context, commissionID string) ([]domain.ApprovalHistoryEntry, error)
}

// ApprovalRepositoryFacade combines the approval interfaces.
type ApprovalRepositoryFacade interface {
	ApprovalRecordRepository
	ApprovalHistoryWriter
	ApprovalHistoryReader
}
