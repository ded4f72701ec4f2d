package models

import "time"

// User is the users table row.
type User struct {
	UserID   string `db:"user_id"`
	Username string `db:"username"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Role     string `db:"role"`
	IsActive bool   `db:"is_active"`
	AuditFields
	DeactivatedAt *time.Time `db:"deactivated_at"`
}
