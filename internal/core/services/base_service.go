package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/SscSPs/onesuite_backend/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	userReader portsrepo.UserReader
	clock      func() time.Time
}

// ServiceOption configures the shared parts of a service.
type ServiceOption func(*BaseService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(b *BaseService) {
		b.clock = clock
	}
}

func newBaseService(users portsrepo.UserReader, opts ...ServiceOption) BaseService {
	b := BaseService{userReader: users, clock: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// now returns the service clock in UTC.
func (s *BaseService) now() time.Time {
	return s.clock().UTC()
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// logUnexpected logs err unless it is one of the expected business outcomes.
func (s *BaseService) logUnexpected(ctx context.Context, err error, msg string, keyvals ...any) {
	for _, expected := range []error{
		apperrors.ErrNotFound, apperrors.ErrValidation, apperrors.ErrDuplicate,
		apperrors.ErrForbidden, apperrors.ErrInvalidTransition, apperrors.ErrBusinessRule,
	} {
		if errors.Is(err, expected) {
			s.LogDebug(ctx, msg, append([]any{slog.String("error", err.Error())}, keyvals...)...)
			return
		}
	}
	s.LogError(ctx, err, msg, keyvals...)
}

// loadActor fetches the acting user and rejects unknown or inactive users.
func (s *BaseService) loadActor(ctx context.Context, actorID string) (*domain.User, error) {
	actor, err := s.userReader.FindUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewAuthorizationError(actorID, "act", "the system", "unknown user")
		}
		return nil, err
	}
	if !actor.IsActive {
		return nil, apperrors.NewAuthorizationError(actorID, "act", "the system", "user is inactive")
	}
	return actor, nil
}

// requireFinance loads the actor and checks it holds the finance or admin role.
func (s *BaseService) requireFinance(ctx context.Context, actorID, action, resource string) (*domain.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.CanOperateFinance() {
		return nil, apperrors.NewAuthorizationError(actorID, action, resource, "finance or admin role required")
	}
	return actor, nil
}

// requireAdmin loads the actor and checks it holds the admin role.
func (s *BaseService) requireAdmin(ctx context.Context, actorID, action, resource string) (*domain.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperrors.NewAuthorizationError(actorID, action, resource, "admin role required")
	}
	return actor, nil
}

// requireSelfOrFinance allows consultants to act on their own records and finance/admin on anyone's.
func (s *BaseService) requireSelfOrFinance(ctx context.Context, actorID, consultantID, action, resource string) (*domain.User, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != consultantID && !actor.CanOperateFinance() {
		return nil, apperrors.NewAuthorizationError(actorID, action, resource, "only the owner or finance may do this")
	}
	return actor, nil
}
