package repositories

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
)

// UserReader looks up the people who act on commissions and payouts.
type UserReader interface {
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	// FindUsers pages through the directory ordered by name.
	FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)
	// CountActiveUsersByRole guards role changes that could leave nobody able to administer.
	CountActiveUsersByRole(ctx context.Context, role domain.UserRole) (int, error)
}

// UserWriter persists directory changes. Users are deactivated, never deleted.
type UserWriter interface {
	SaveUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
}

type UserRepositoryFacade interface {
	UserReader
	UserWriter
}
