package domain

import "time"

// UserRole is the organisational role of a user.
type UserRole string

const (
	RoleConsultant UserRole = "consultant"
	RoleManager    UserRole = "manager"
	RoleFinance    UserRole = "finance"
	RoleDirector   UserRole = "director"
	RoleAdmin      UserRole = "admin"
)

// IsValid reports whether the role is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleConsultant, RoleManager, RoleFinance, RoleDirector, RoleAdmin:
		return true
	}
	return false
}

// User represents a user of the application in the domain.
type User struct {
	UserID   string   `json:"userID"` // Primary Key (e.g., UUID)
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	IsActive bool     `json:"isActive"`
	AuditFields
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanOperateFinance reports whether the user may run payment and settlement operations.
func (u User) CanOperateFinance() bool {
	return u.Role == RoleAdmin || u.Role == RoleFinance
}
