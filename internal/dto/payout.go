package dto

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
)

// CreatePeriodRequest defines a new payout period.
type CreatePeriodRequest struct {
	Name         string    `json:"name" binding:"required"`
	StartDate    time.Time `json:"startDate" binding:"required"`
	EndDate      time.Time `json:"endDate" binding:"required"`
	IsTaxYearEnd bool      `json:"isTaxYearEnd"`
}

// CreateBatchRequest starts a payroll run in a period.
type CreateBatchRequest struct {
	PeriodID string     `json:"periodID" binding:"required"`
	RunDate  *time.Time `json:"runDate"`
	Notes    string     `json:"notes"`
}

// VoidBatchRequest requires a reason.
type VoidBatchRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListBatchesParams filters batch listings.
type ListBatchesParams struct {
	PeriodID string `form:"periodID"`
	Status   string `form:"status"`
}

// CreateBatchResponse returns the new batch with the outcome of its first generation pass.
type CreateBatchResponse struct {
	Batch      domain.PayoutBatch      `json:"batch"`
	Generation domain.GenerationResult `json:"generation"`
}
