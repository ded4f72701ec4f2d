package domain

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
)

// ReportingLine is a time-bounded consultant -> manager edge.
// EndDate nil means the line is open-ended.
type ReportingLine struct {
	LineID       string     `json:"lineID"`
	ConsultantID string     `json:"consultantID"`
	ManagerID    string     `json:"managerID"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	IsActive     bool       `json:"isActive"`
	AuditFields
}

// Validate checks the structural invariants of a reporting line.
func (l ReportingLine) Validate() error {
	if l.ConsultantID == "" {
		return apperrors.NewValidationError("consultantID", "is required")
	}
	if l.ManagerID == "" {
		return apperrors.NewValidationError("managerID", "is required")
	}
	if l.ConsultantID == l.ManagerID {
		return apperrors.NewValidationError("managerID", "a consultant cannot manage themselves")
	}
	if l.StartDate.IsZero() {
		return apperrors.NewValidationError("startDate", "is required")
	}
	if l.EndDate != nil && DateOnly(*l.EndDate).Before(DateOnly(l.StartDate)) {
		return apperrors.NewValidationError("endDate", "must not be before startDate")
	}
	return nil
}

// Covers reports whether the line was in effect on the given date.
func (l ReportingLine) Covers(date time.Time) bool {
	d := DateOnly(date)
	if DateOnly(l.StartDate).After(d) {
		return false
	}
	return l.EndDate == nil || !DateOnly(*l.EndDate).Before(d)
}

// OverrideLink is one hop of an override chain.
type OverrideLink struct {
	ManagerID string `json:"managerID"`
	Level     int    `json:"level"`
}
