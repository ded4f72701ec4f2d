package pgsql

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/SscSPs/onesuite_backend/internal/models"
	"github.com/SscSPs/onesuite_backend/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(db *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: db}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

const userColumns = `user_id, username, name, email, role, is_active,
	created_at, created_by, last_updated_at, last_updated_by, deactivated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID, &m.Username, &m.Name, &m.Email, &m.Role, &m.IsActive,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy, &m.DeactivatedAt,
	)
	return m, err
}

func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.UserID, m.Username, m.Name, m.Email, m.Role, m.IsActive,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.DeactivatedAt,
	)
	return mapDBError(err, "save user "+m.UserID)
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1;`
	m, err := scanUser(r.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	u := mapping.ToDomainUser(m)
	return &u, nil
}

func (r *PgxUserRepository) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name ASC, user_id ASC LIMIT $1 OFFSET $2;`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, mapDBError(err, "list users")
	}
	ms, err := collect(rows, func(rows pgx.Rows) (models.User, error) { return scanUser(rows) })
	if err != nil {
		return nil, mapDBError(err, "scan users")
	}
	return mapping.ToDomainUserSlice(ms), nil
}

func (r *PgxUserRepository) CountActiveUsersByRole(ctx context.Context, role domain.UserRole) (int, error) {
	var n int
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1 AND is_active;`, string(role)).Scan(&n)
	if err != nil {
		return 0, mapDBError(err, "count "+string(role)+" users")
	}
	return n, nil
}

func (r *PgxUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	query := `
		UPDATE users
		SET name = $2, email = $3, role = $4, is_active = $5, deactivated_at = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE user_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.UserID, m.Name, m.Email, m.Role, m.IsActive, m.DeactivatedAt, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return mapDBError(err, "update user "+m.UserID)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFoundOr(pgx.ErrNoRows, "user", m.UserID)
	}
	return nil
}
