package dto

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
)

// CreateUserRequest defines the data needed to register a user.
type CreateUserRequest struct {
	Username string          `json:"username" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"omitempty,email"`
	Role     domain.UserRole `json:"role" binding:"required,oneof=consultant manager finance director admin"`
}

// UpdateUserRequest defines the data allowed for updating a user.
// Using pointers to differentiate between omitted fields and zero-value fields.
type UpdateUserRequest struct {
	Name  *string          `json:"name"`
	Email *string          `json:"email" binding:"omitempty,email"`
	Role  *domain.UserRole `json:"role" binding:"omitempty,oneof=consultant manager finance director admin"`
}

// ListUsersParams defines query parameters for listing users.
type ListUsersParams struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	UserID        string          `json:"userID"`
	Username      string          `json:"username"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	Role          domain.UserRole `json:"role"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	DeactivatedAt *time.Time      `json:"deactivatedAt,omitempty"`
}

// ListUsersResponse wraps the list of users.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// ToUserResponse converts a domain.User to UserResponse DTO
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		UserID:        user.UserID,
		Username:      user.Username,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt,
		DeactivatedAt: user.DeactivatedAt,
	}
}

// ToListUserResponse converts a slice of domain.User to ListUsersResponse DTO
func ToListUserResponse(users []domain.User) ListUsersResponse {
	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = ToUserResponse(&users[i])
	}
	return ListUsersResponse{
		Users: userResponses,
	}
}
