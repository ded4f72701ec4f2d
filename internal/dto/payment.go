package dto

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest opens the transfer for a released batch.
type InitiatePaymentRequest struct {
	PaymentMethodID *string `json:"paymentMethodID"`
	Notes           string  `json:"notes"`
}

// ConfirmPaymentRequest records the bank's confirmation.
type ConfirmPaymentRequest struct {
	ExternalReference string `json:"externalReference" binding:"required"`
	ConfirmationCode  string `json:"confirmationCode"`
	Notes             string `json:"notes"`
}

// FailPaymentRequest requires a reason.
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateReconciliationRequest records what was actually transferred for a batch.
type CreateReconciliationRequest struct {
	ActualAmount       decimal.Decimal `json:"actualAmount"`
	ReconciliationDate *time.Time      `json:"reconciliationDate"`
	TransactionID      *string         `json:"transactionID"`
	Notes              string          `json:"notes"`
}

// ResolveDiscrepancyRequest requires resolution notes.
type ResolveDiscrepancyRequest struct {
	ResolutionNotes string `json:"resolutionNotes" binding:"required"`
}

// AddPaymentMethodRequest registers bank details. ConsultantID defaults to the caller.
type AddPaymentMethodRequest struct {
	ConsultantID  string                   `json:"consultantID"`
	MethodType    domain.PaymentMethodType `json:"methodType" binding:"required,oneof=ACH WIRE CHECK"`
	BankName      string                   `json:"bankName"`
	AccountNumber string                   `json:"accountNumber" binding:"omitempty,numeric,min=4,max=17"`
	RoutingNumber string                   `json:"routingNumber" binding:"omitempty,numeric,len=9"`
}
