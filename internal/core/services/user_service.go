package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/google/uuid"
)

type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates the user directory service.
func NewUserService(userRepo portsrepo.UserRepositoryFacade, opts ...ServiceOption) portssvc.UserSvcFacade {
	return &userService{
		BaseService: newBaseService(userRepo, opts...),
		userRepo:    userRepo,
	}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

// CreateUser adds a user. Only admins may create users.
func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest, actorID string) (*domain.User, error) {
	if _, err := s.requireAdmin(ctx, actorID, "create", "user"); err != nil {
		return nil, err
	}
	role := domain.UserRole(req.Role)
	if !role.IsValid() {
		return nil, apperrors.NewValidationError("role", "is not a known role")
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, apperrors.NewValidationError("username", "is required")
	}

	user := domain.User{
		UserID:      uuid.NewString(),
		Username:    strings.TrimSpace(req.Username),
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Role:        role,
		IsActive:    true,
		AuditFields: domain.NewAuditFields(actorID, s.now()),
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		s.logUnexpected(ctx, err, "Failed to save user", slog.String("username", user.Username))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.LogInfo(ctx, "User created", slog.String("user_id", user.UserID), slog.String("role", string(role)))
	return &user, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	users, err := s.userRepo.FindUsers(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		return []domain.User{}, nil
	}
	return users, nil
}

// UpdateUser changes a user's details. Users may edit their own name and email; role changes
// need an admin. A request that changes nothing is not persisted.
func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, actorID string) (*domain.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, apperrors.NewAuthorizationError(actorID, "update", "user "+userID, "admin role required")
	}
	if req.Role != nil && !actor.IsAdmin() {
		return nil, apperrors.NewAuthorizationError(actorID, "change role of", "user "+userID, "admin role required")
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := false
	if req.Name != nil && strings.TrimSpace(*req.Name) != user.Name {
		user.Name = strings.TrimSpace(*req.Name)
		changed = true
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != user.Email {
		user.Email = strings.TrimSpace(*req.Email)
		changed = true
	}
	if req.Role != nil && domain.UserRole(*req.Role) != user.Role {
		role := domain.UserRole(*req.Role)
		if !role.IsValid() {
			return nil, apperrors.NewValidationError("role", "is not a known role")
		}
		if user.Role == domain.RoleAdmin && user.IsActive {
			admins, err := s.userRepo.CountActiveUsersByRole(ctx, domain.RoleAdmin)
			if err != nil {
				s.logUnexpected(ctx, err, "Failed to count admins", slog.String("user_id", userID))
				return nil, fmt.Errorf("failed to count admins: %w", err)
			}
			if admins <= 1 {
				return nil, apperrors.NewRuleError("last admin", "the only active admin cannot give up the admin role")
			}
		}
		user.Role = role
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.Touch(actorID, s.now())
	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		s.logUnexpected(ctx, err, "Failed to update user", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeactivateUser disables a user. Users are never deleted because history references them.
func (s *userService) DeactivateUser(ctx context.Context, userID string, actorID string) error {
	if _, err := s.requireAdmin(ctx, actorID, "deactivate", "user "+userID); err != nil {
		return err
	}
	if userID == actorID {
		return apperrors.NewRuleError("self deactivation", "admins cannot deactivate themselves")
	}
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperrors.NewRuleError("user inactive", "user "+userID+" is already inactive")
	}

	now := s.now()
	user.IsActive = false
	user.DeactivatedAt = &now
	user.Touch(actorID, now)
	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		s.LogError(ctx, err, "Failed to deactivate user", slog.String("user_id", userID))
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	s.LogInfo(ctx, "User deactivated", slog.String("user_id", userID))
	return nil
}
