package domain

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// MaxPaymentRetries bounds how often a failed transaction may be retried.
const MaxPaymentRetries = 3

// PaymentStatus is the state of an external transfer.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentProcessing: {PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentFailed:     {PaymentPending},
	PaymentCompleted:  {},
	PaymentCancelled:  {},
}

// CanTransitionTo reports whether s -> target is allowed.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsOpen reports whether the transfer is still in flight.
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentPending || s == PaymentProcessing
}

// PaymentTransaction tracks the external transfer for a released batch.
type PaymentTransaction struct {
	TransactionID     string          `json:"transactionID"`
	BatchID           string          `json:"batchID"`
	PaymentMethodID   *string         `json:"paymentMethodID,omitempty"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Status            PaymentStatus   `json:"status"`
	ExternalReference *string         `json:"externalReference,omitempty"`
	ConfirmationCode  *string         `json:"confirmationCode,omitempty"`
	FailureReason     *string         `json:"failureReason,omitempty"`
	RetryCount        int             `json:"retryCount"`
	InitiatedBy       string          `json:"initiatedBy"`
	InitiatedAt       time.Time       `json:"initiatedAt"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	AuditFields
}

func (t *PaymentTransaction) transition(target PaymentStatus, actorID string, at time.Time) error {
	if !t.Status.CanTransitionTo(target) {
		return apperrors.NewStateError("payment transaction", t.TransactionID, string(t.Status), string(target))
	}
	t.Status = target
	t.Touch(actorID, at)
	return nil
}

// Confirm marks the transfer completed.
func (t *PaymentTransaction) Confirm(externalRef, confirmationCode, actorID string, at time.Time) error {
	if externalRef == "" {
		return apperrors.NewValidationError("externalReference", "is required to confirm a payment")
	}
	if err := t.transition(PaymentCompleted, actorID, at); err != nil {
		return err
	}
	completedAt := at
	t.ExternalReference = &externalRef
	if confirmationCode != "" {
		t.ConfirmationCode = &confirmationCode
	}
	t.CompletedAt = &completedAt
	t.FailureReason = nil
	return nil
}

// Fail marks the transfer failed.
func (t *PaymentTransaction) Fail(reason, actorID string, at time.Time) error {
	if reason == "" {
		return apperrors.NewValidationError("reason", "is required to mark a payment failed")
	}
	if err := t.transition(PaymentFailed, actorID, at); err != nil {
		return err
	}
	t.FailureReason = &reason
	return nil
}

// Retry puts a failed transfer back to pending.
func (t *PaymentTransaction) Retry(actorID string, at time.Time) error {
	if t.Status == PaymentFailed && t.RetryCount >= MaxPaymentRetries {
		return apperrors.NewRuleError("retry limit reached", "payment has already been retried the maximum number of times")
	}
	if err := t.transition(PaymentPending, actorID, at); err != nil {
		return err
	}
	t.RetryCount++
	t.FailureReason = nil
	return nil
}

// Cancel stops an in-flight transfer.
func (t *PaymentTransaction) Cancel(actorID string, at time.Time) error {
	return t.transition(PaymentCancelled, actorID, at)
}

// ReconciliationStatus is the outcome of a reconciliation.
type ReconciliationStatus string

const (
	ReconciliationReconciled  ReconciliationStatus = "RECONCILED"
	ReconciliationDiscrepancy ReconciliationStatus = "DISCREPANCY"
	ReconciliationResolved    ReconciliationStatus = "RESOLVED"
)

// PaymentReconciliation compares what a batch should have paid with what was transferred.
type PaymentReconciliation struct {
	ReconciliationID   string               `json:"reconciliationID"`
	BatchID            string               `json:"batchID"`
	TransactionID      *string              `json:"transactionID,omitempty"`
	ReconciliationDate time.Time            `json:"reconciliationDate"`
	ExpectedAmount     decimal.Decimal      `json:"expectedAmount"`
	ActualAmount       decimal.Decimal      `json:"actualAmount"`
	Discrepancy        decimal.Decimal      `json:"discrepancy"`
	Status             ReconciliationStatus `json:"status"`
	Notes              string               `json:"notes,omitempty"`
	ResolutionNotes    string               `json:"resolutionNotes,omitempty"`
	ReconciledBy       string               `json:"reconciledBy"`
	ResolvedBy         *string              `json:"resolvedBy,omitempty"`
	ResolvedAt         *time.Time           `json:"resolvedAt,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
}

// Evaluate computes the discrepancy (actual - expected) and the resulting status.
func (r *PaymentReconciliation) Evaluate() {
	r.Discrepancy = r.ActualAmount.Sub(r.ExpectedAmount)
	if r.Discrepancy.IsZero() {
		r.Status = ReconciliationReconciled
	} else {
		r.Status = ReconciliationDiscrepancy
	}
}

// Resolve closes a discrepancy with notes.
func (r *PaymentReconciliation) Resolve(notes, actorID string, at time.Time) error {
	if r.Status != ReconciliationDiscrepancy {
		return apperrors.NewStateError("reconciliation", r.ReconciliationID, string(r.Status), string(ReconciliationResolved))
	}
	if notes == "" {
		return apperrors.NewValidationError("resolutionNotes", "are required to resolve a discrepancy")
	}
	resolvedAt := at
	r.Status = ReconciliationResolved
	r.ResolutionNotes = notes
	r.ResolvedBy = &actorID
	r.ResolvedAt = &resolvedAt
	return nil
}

// PaymentAuditAction names a payment-side audit event.
type PaymentAuditAction string

const (
	AuditTransactionInitiated    PaymentAuditAction = "TRANSACTION_INITIATED"
	AuditTransactionConfirmed    PaymentAuditAction = "TRANSACTION_CONFIRMED"
	AuditTransactionFailed       PaymentAuditAction = "TRANSACTION_FAILED"
	AuditTransactionRetried      PaymentAuditAction = "TRANSACTION_RETRIED"
	AuditTransactionCancelled    PaymentAuditAction = "TRANSACTION_CANCELLED"
	AuditReconciliationCreated   PaymentAuditAction = "RECONCILIATION_CREATED"
	AuditDiscrepancyResolved     PaymentAuditAction = "DISCREPANCY_RESOLVED"
	AuditW9Submitted             PaymentAuditAction = "W9_SUBMITTED"
	AuditW9Approved              PaymentAuditAction = "W9_APPROVED"
	AuditW9Rejected              PaymentAuditAction = "W9_REJECTED"
	AuditTaxDocumentGenerated    PaymentAuditAction = "TAX_DOCUMENT_GENERATED"
	AuditTaxDocumentSent         PaymentAuditAction = "TAX_DOCUMENT_SENT"
	AuditTaxDocumentFiled        PaymentAuditAction = "TAX_DOCUMENT_FILED"
	AuditPaymentMethodAdded      PaymentAuditAction = "PAYMENT_METHOD_ADDED"
	AuditPaymentMethodVerified   PaymentAuditAction = "PAYMENT_METHOD_VERIFIED"
	AuditPaymentMethodDeactivate PaymentAuditAction = "PAYMENT_METHOD_DEACTIVATED"
	AuditPaymentMethodDefaultSet PaymentAuditAction = "PAYMENT_METHOD_DEFAULT_SET"
)

// PaymentAuditEntry is one insert-only payment audit row.
type PaymentAuditEntry struct {
	AuditID    string             `json:"auditID"`
	Action     PaymentAuditAction `json:"action"`
	ActorID    string             `json:"actorID"`
	EntityType string             `json:"entityType"`
	EntityID   string             `json:"entityID"`
	Details    map[string]any     `json:"details,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}
