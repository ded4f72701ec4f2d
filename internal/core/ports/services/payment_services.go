package services

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
)

// PaymentExecutionSvc tracks external transfers for released batches.
type PaymentExecutionSvc interface {
	InitiatePayment(ctx context.Context, batchID string, req dto.InitiatePaymentRequest, actorID string) (*domain.PaymentTransaction, error)
	ConfirmPayment(ctx context.Context, transactionID string, req dto.ConfirmPaymentRequest, actorID string) (*domain.PaymentTransaction, error)
	MarkPaymentFailed(ctx context.Context, transactionID, reason, actorID string) (*domain.PaymentTransaction, error)
	RetryPayment(ctx context.Context, transactionID, actorID string) (*domain.PaymentTransaction, error)
	CancelPayment(ctx context.Context, transactionID, actorID string) (*domain.PaymentTransaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error)
	ListTransactions(ctx context.Context, status *domain.PaymentStatus) ([]domain.PaymentTransaction, error)
}

// ReconciliationSvc compares expected and actual batch amounts.
type ReconciliationSvc interface {
	CreateReconciliation(ctx context.Context, batchID string, req dto.CreateReconciliationRequest, actorID string) (*domain.PaymentReconciliation, error)
	ResolveDiscrepancy(ctx context.Context, reconciliationID, notes, actorID string) (*domain.PaymentReconciliation, error)
	ListReconciliations(ctx context.Context, status *domain.ReconciliationStatus) ([]domain.PaymentReconciliation, error)
}

// PaymentMethodSvc manages consultant bank details.
type PaymentMethodSvc interface {
	AddPaymentMethod(ctx context.Context, req dto.AddPaymentMethodRequest, actorID string) (*domain.PaymentMethod, error)
	VerifyPaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error)
	DeactivatePaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, consultantID, actorID string) ([]domain.PaymentMethod, error)
}

// PaymentAuditSvc reads the payment audit log.
type PaymentAuditSvc interface {
	ListAudit(ctx context.Context, entityType, entityID string) ([]domain.PaymentAuditEntry, error)
}

// PaymentSvcFacade combines payment services.
type PaymentSvcFacade interface {
	PaymentExecutionSvc
	ReconciliationSvc
	PaymentMethodSvc
	PaymentAuditSvc
}
