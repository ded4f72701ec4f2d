package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the actor is not permitted to perform the action.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates the request carries no usable identity.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidTransition indicates a state machine was asked for a transition it does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrBusinessRule indicates a request that is well-formed but violates a business rule.
var ErrBusinessRule = errors.New("business rule violation")

// ErrInternal indicates an unexpected infrastructure failure.
var ErrInternal = errors.New("internal error")

// AppError wraps an infrastructure failure with an HTTP-ish status code and message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause. A nil cause maps to ErrInternal for 5xx codes
// so callers can still match on the sentinel.
func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Code >= 500 {
		return ErrInternal
	}
	return nil
}

// StateError reports an illegal transition, naming both the current and the requested state.
type StateError struct {
	Entity    string
	ID        string
	Current   string
	Requested string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid transition for %s %s: %s -> %s", e.Entity, e.ID, e.Current, e.Requested)
}

func (e *StateError) Unwrap() error { return ErrInvalidTransition }

// NewStateError creates a StateError.
func NewStateError(entity, id, current, requested string) *StateError {
	return &StateError{Entity: entity, ID: id, Current: current, Requested: requested}
}

// AuthorizationError reports that an actor may not perform an action on a resource.
type AuthorizationError struct {
	ActorID  string
	Action   string
	Resource string
	Reason   string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("user %s is not permitted to %s %s", e.ActorID, e.Action, e.Resource)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// NewAuthorizationError creates an AuthorizationError.
func NewAuthorizationError(actorID, action, resource, reason string) *AuthorizationError {
	return &AuthorizationError{ActorID: actorID, Action: action, Resource: resource, Reason: reason}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// RuleError reports a business-rule violation.
type RuleError struct {
	Rule   string
	Detail string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func (e *RuleError) Unwrap() error { return ErrBusinessRule }

// NewRuleError creates a RuleError.
func NewRuleError(rule, detail string) *RuleError {
	return &RuleError{Rule: rule, Detail: detail}
}
