package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxHierarchyRepository stores reporting lines. A partial unique index on
// (consultant_id) WHERE is_active keeps one active line per consultant.
type PgxHierarchyRepository struct {
	BaseRepository
}

func newPgxHierarchyRepository(pool *pgxpool.Pool) portsrepo.HierarchyRepositoryWithTx {
	return &PgxHierarchyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.HierarchyRepositoryWithTx = (*PgxHierarchyRepository)(nil)

const lineColumns = `line_id, consultant_id, manager_id, start_date, end_date, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

func scanLine(row pgx.Row) (domain.ReportingLine, error) {
	var l domain.ReportingLine
	err := row.Scan(
		&l.LineID, &l.ConsultantID, &l.ManagerID, &l.StartDate, &l.EndDate, &l.IsActive,
		&l.CreatedAt, &l.CreatedBy, &l.LastUpdatedAt, &l.LastUpdatedBy,
	)
	return l, err
}

func (r *PgxHierarchyRepository) findOne(ctx context.Context, q querier, id, query string, args ...any) (*domain.ReportingLine, error) {
	l, err := scanLine(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "reporting line", id)
	}
	return &l, nil
}

func (r *PgxHierarchyRepository) list(ctx context.Context, query string, args ...any) ([]domain.ReportingLine, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err, "query reporting lines")
	}
	lines, err := collect(rows, func(rows pgx.Rows) (domain.ReportingLine, error) { return scanLine(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan reporting lines")
	}
	return lines, nil
}

// FindLineAt treats end_date as inclusive.
func (r *PgxHierarchyRepository) FindLineAt(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time) (*domain.ReportingLine, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM reporting_lines
		WHERE consultant_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date DESC
		LIMIT 1;
	`
	return r.findOne(ctx, r.db(tx), "for "+consultantID, query, consultantID, domain.DateOnly(date))
}

func (r *PgxHierarchyRepository) IsActiveManagerOf(ctx context.Context, tx pgx.Tx, managerID, consultantID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM reporting_lines WHERE is_active AND consultant_id = $1 AND manager_id = $2);`
	if err := r.db(tx).QueryRow(ctx, query, consultantID, managerID).Scan(&exists); err != nil {
		return false, mapDBError(err, "check manager of "+consultantID)
	}
	return exists, nil
}

func (r *PgxHierarchyRepository) FindReportingLineByID(ctx context.Context, lineID string) (*domain.ReportingLine, error) {
	query := `SELECT ` + lineColumns + ` FROM reporting_lines WHERE line_id = $1;`
	return r.findOne(ctx, r.Pool, lineID, query, lineID)
}

func (r *PgxHierarchyRepository) ListTeamAt(ctx context.Context, managerID string, date time.Time) ([]domain.ReportingLine, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM reporting_lines
		WHERE manager_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY consultant_id;
	`
	return r.list(ctx, query, managerID, domain.DateOnly(date))
}

func (r *PgxHierarchyRepository) ListLinesForConsultant(ctx context.Context, consultantID string) ([]domain.ReportingLine, error) {
	query := `SELECT ` + lineColumns + ` FROM reporting_lines WHERE consultant_id = $1 ORDER BY start_date DESC;`
	return r.list(ctx, query, consultantID)
}

func (r *PgxHierarchyRepository) FindActiveLineForUpdate(ctx context.Context, tx pgx.Tx, consultantID string) (*domain.ReportingLine, error) {
	query := `SELECT ` + lineColumns + ` FROM reporting_lines WHERE consultant_id = $1 AND is_active FOR UPDATE;`
	return r.findOne(ctx, tx, "active for "+consultantID, query, consultantID)
}

func (r *PgxHierarchyRepository) FindReportingLineByIDForUpdate(ctx context.Context, tx pgx.Tx, lineID string) (*domain.ReportingLine, error) {
	query := `SELECT ` + lineColumns + ` FROM reporting_lines WHERE line_id = $1 FOR UPDATE;`
	return r.findOne(ctx, tx, lineID, query, lineID)
}

func (r *PgxHierarchyRepository) SaveReportingLine(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error {
	query := `INSERT INTO reporting_lines (` + lineColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err := tx.Exec(ctx, query,
		line.LineID, line.ConsultantID, line.ManagerID, line.StartDate, line.EndDate, line.IsActive,
		line.CreatedAt, line.CreatedBy, line.LastUpdatedAt, line.LastUpdatedBy,
	)
	return mapDBError(err, "save reporting line for "+line.ConsultantID)
}

func (r *PgxHierarchyRepository) EndReportingLine(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error {
	query := `
		UPDATE reporting_lines
		SET end_date = $2, is_active = FALSE, last_updated_at = $3, last_updated_by = $4
		WHERE line_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, line.LineID, line.EndDate, line.LastUpdatedAt, line.LastUpdatedBy)
	if err != nil {
		return mapDBError(err, "end reporting line "+line.LineID)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "reporting line", line.LineID)
	}
	return nil
}
