package dto

import "time"

// AssignManagerRequest opens the first reporting line for a consultant.
type AssignManagerRequest struct {
	ConsultantID string    `json:"consultantID" binding:"required"`
	ManagerID    string    `json:"managerID" binding:"required"`
	StartDate    time.Time `json:"startDate" binding:"required"`
}

// ChangeManagerRequest moves a consultant to a new manager from EffectiveDate.
type ChangeManagerRequest struct {
	ConsultantID  string    `json:"consultantID" binding:"required"`
	NewManagerID  string    `json:"newManagerID" binding:"required"`
	EffectiveDate time.Time `json:"effectiveDate" binding:"required"`
}

// DeactivateLineRequest ends a reporting line. EndDate defaults to today.
type DeactivateLineRequest struct {
	EndDate *time.Time `json:"endDate"`
}

// TeamParams selects the date a team listing is evaluated at.
type TeamParams struct {
	Date string `form:"date"` // YYYY-MM-DD, defaults to today
}
