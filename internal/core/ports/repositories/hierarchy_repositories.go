package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// HierarchyReader answers point-in-time questions about reporting lines.
// Methods taking a pgx.Tx run inside it when tx is non-nil and against the pool otherwise.
type HierarchyReader interface {
	// FindLineAt returns the line covering date for the consultant, newest start first.
	// Returns apperrors.ErrNotFound when the consultant had no manager on that date.
	FindLineAt(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time) (*domain.ReportingLine, error)

	// IsActiveManagerOf reports whether managerID currently manages consultantID.
	IsActiveManagerOf(ctx context.Context, tx pgx.Tx, managerID, consultantID string) (bool, error)

	// FindReportingLineByID retrieves one line.
	FindReportingLineByID(ctx context.Context, lineID string) (*domain.ReportingLine, error)

	// ListTeamAt lists the lines of consultants reporting to managerID on date.
	ListTeamAt(ctx context.Context, managerID string, date time.Time) ([]domain.ReportingLine, error)

	// ListLinesForConsultant returns a consultant's full manager history, newest first.
	ListLinesForConsultant(ctx context.Context, consultantID string) ([]domain.ReportingLine, error)
}

// HierarchyWriter mutates reporting lines. Lines are never deleted.
type HierarchyWriter interface {
	// FindActiveLineForUpdate locks and returns the consultant's active line.
	FindActiveLineForUpdate(ctx context.Context, tx pgx.Tx, consultantID string) (*domain.ReportingLine, error)

	// FindReportingLineByIDForUpdate locks and returns one line.
	FindReportingLineByIDForUpdate(ctx context.Context, tx pgx.Tx, lineID string) (*domain.ReportingLine, error)

	// SaveReportingLine inserts a new line. A second active line for the consultant is ErrDuplicate.
	SaveReportingLine(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error

	// EndReportingLine sets end_date and clears is_active.
	EndReportingLine(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error
}

// HierarchyRepositoryWithTx is the full hierarchy repository.
type HierarchyRepositoryWithTx interface {
	HierarchyReader
	HierarchyWriter
	TransactionManager
}
