package dto

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCommissionRequest defines the data needed to record a sale.
// Rates are percentages, e.g. 5.00 for 5%.
type CreateCommissionRequest struct {
	ConsultantID    string          `json:"consultantID" binding:"required"`
	TransactionDate time.Time       `json:"transactionDate" binding:"required"`
	SaleAmount      decimal.Decimal `json:"saleAmount"`
	GSTRate         decimal.Decimal `json:"gstRate"`
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	ReferenceNumber string          `json:"referenceNumber" binding:"required"`
	ClientName      string          `json:"clientName"`
	Notes           string          `json:"notes"`
}

// CreateAdjustmentRequest corrects a paid commission. Amount may be negative.
type CreateAdjustmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required"`
}

// ListCommissionsParams defines query parameters for listing commissions.
type ListCommissionsParams struct {
	ConsultantID string `form:"consultantID"`
	State        string `form:"state"`
	Type         string `form:"type"`
	Limit        int    `form:"limit,default=20"`
	NextToken    string `form:"nextToken"`
}

// CommissionResponse flattens a commission and its kind for the wire.
type CommissionResponse struct {
	CommissionID       string                 `json:"commissionID"`
	CommissionType     domain.CommissionType  `json:"commissionType"`
	ConsultantID       string                 `json:"consultantID"`
	ParentCommissionID *string                `json:"parentCommissionID,omitempty"`
	ManagerID          *string                `json:"managerID,omitempty"`
	OverrideLevel      *int                   `json:"overrideLevel,omitempty"`
	AdjustmentForID    *string                `json:"adjustmentForID,omitempty"`
	TransactionDate    time.Time              `json:"transactionDate"`
	SaleAmount         decimal.Decimal        `json:"saleAmount"`
	GSTRate            decimal.Decimal        `json:"gstRate"`
	CommissionRate     decimal.Decimal        `json:"commissionRate"`
	CalculatedAmount   decimal.Decimal        `json:"calculatedAmount"`
	State              domain.CommissionState `json:"state"`
	ReferenceNumber    string                 `json:"referenceNumber"`
	ClientName         string                 `json:"clientName,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	ApprovedBy         *string                `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time             `json:"approvedAt,omitempty"`
	PaidAt             *time.Time             `json:"paidAt,omitempty"`
	RejectionReason    *string                `json:"rejectionReason,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	CreatedBy          string                 `json:"createdBy"`
	LastUpdatedAt      time.Time              `json:"lastUpdatedAt"`
	LastUpdatedBy      string                 `json:"lastUpdatedBy"`
}

// ToCommissionResponse converts a domain.Commission to CommissionResponse DTO
func ToCommissionResponse(c domain.Commission) CommissionResponse {
	res := CommissionResponse{
		CommissionID:     c.CommissionID,
		CommissionType:   c.Type(),
		ConsultantID:     c.ConsultantID,
		TransactionDate:  c.TransactionDate,
		SaleAmount:       c.SaleAmount,
		GSTRate:          c.GSTRate,
		CommissionRate:   c.CommissionRate,
		CalculatedAmount: c.CalculatedAmount,
		State:            c.State,
		ReferenceNumber:  c.ReferenceNumber,
		ClientName:       c.ClientName,
		Notes:            c.Notes,
		ApprovedBy:       c.ApprovedBy,
		ApprovedAt:       c.ApprovedAt,
		PaidAt:           c.PaidAt,
		RejectionReason:  c.RejectionReason,
		CreatedAt:        c.CreatedAt,
		CreatedBy:        c.CreatedBy,
		LastUpdatedAt:    c.LastUpdatedAt,
		LastUpdatedBy:    c.LastUpdatedBy,
	}
	switch k := c.Kind.(type) {
	case domain.OverrideCommission:
		res.ParentCommissionID = &k.ParentID
		res.ManagerID = &k.ManagerID
		res.OverrideLevel = &k.Level
	case domain.AdjustmentCommission:
		res.AdjustmentForID = &k.OriginalID
	}
	return res
}

// ToListCommissionResponse converts a slice of commissions.
func ToListCommissionResponse(commissions []domain.Commission) []CommissionResponse {
	res := make([]CommissionResponse, len(commissions))
	for i, c := range commissions {
		res[i] = ToCommissionResponse(c)
	}
	return res
}

// ListCommissionsResponse is one page of commissions.
type ListCommissionsResponse struct {
	Commissions []CommissionResponse `json:"commissions"`
	NextToken   *string              `json:"nextToken,omitempty"`
}

// CreateCommissionResponse returns the base commission and the overrides created with it.
type CreateCommissionResponse struct {
	Base         CommissionResponse   `json:"base"`
	Overrides    []CommissionResponse `json:"overrides"`
	TotalCreated int                  `json:"totalCreated"`
}
