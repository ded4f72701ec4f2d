package repositories

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// PaymentTransactionRepository manages external transfers.
type PaymentTransactionRepository interface {
	// SaveTransaction inserts a transaction. A second transaction for a batch is ErrDuplicate.
	SaveTransaction(ctx context.Context, tx pgx.Tx, transaction domain.PaymentTransaction) error
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error)
	FindTransactionByIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.PaymentTransaction, error)
	// FindTransactionByBatchID returns the batch's transaction or apperrors.ErrNotFound.
	FindTransactionByBatchID(ctx context.Context, tx pgx.Tx, batchID string) (*domain.PaymentTransaction, error)
	UpdateTransaction(ctx context.Context, tx pgx.Tx, transaction domain.PaymentTransaction) error
	ListTransactions(ctx context.Context, status *domain.PaymentStatus) ([]domain.PaymentTransaction, error)
	// CountOpenTransactionsForMethod counts PENDING/PROCESSING transactions using a payment method.
	CountOpenTransactionsForMethod(ctx context.Context, tx pgx.Tx, paymentMethodID string) (int, error)
}

// ReconciliationRepository manages reconciliations.
type ReconciliationRepository interface {
	SaveReconciliation(ctx context.Context, tx pgx.Tx, reconciliation domain.PaymentReconciliation) error
	FindReconciliationByIDForUpdate(ctx context.Context, tx pgx.Tx, reconciliationID string) (*domain.PaymentReconciliation, error)
	UpdateReconciliation(ctx context.Context, tx pgx.Tx, reconciliation domain.PaymentReconciliation) error
	ListReconciliations(ctx context.Context, status *domain.ReconciliationStatus) ([]domain.PaymentReconciliation, error)
}

// PaymentAuditWriter is insert-only.
type PaymentAuditWriter interface {
	AppendPaymentAudit(ctx context.Context, tx pgx.Tx, entry domain.PaymentAuditEntry) error
}

// PaymentAuditReader reads the payment audit log.
type PaymentAuditReader interface {
	ListPaymentAudit(ctx context.Context, entityType, entityID string) ([]domain.PaymentAuditEntry, error)
}

// PaymentMethodRepository manages consultant bank details.
type PaymentMethodRepository interface {
	SavePaymentMethod(ctx context.Context, tx pgx.Tx, method domain.PaymentMethod) error
	FindPaymentMethodByIDForUpdate(ctx context.Context, tx pgx.Tx, paymentMethodID string) (*domain.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, tx pgx.Tx, method domain.PaymentMethod) error
	// ClearDefaultPaymentMethods unsets is_default on all of a consultant's methods.
	ClearDefaultPaymentMethods(ctx context.Context, tx pgx.Tx, consultantID string) error
	ListPaymentMethods(ctx context.Context, consultantID string) ([]domain.PaymentMethod, error)
}

// TaxRepository manages W-9s and tax documents.
type TaxRepository interface {
	// UpsertW9 creates or replaces a consultant's W-9.
	UpsertW9(ctx context.Context, tx pgx.Tx, w9 domain.W9Information) (*domain.W9Information, error)
	FindW9ByConsultant(ctx context.Context, tx pgx.Tx, consultantID string) (*domain.W9Information, error)
	FindW9ByIDForUpdate(ctx context.Context, tx pgx.Tx, w9ID string) (*domain.W9Information, error)
	UpdateW9Review(ctx context.Context, tx pgx.Tx, w9 domain.W9Information) error
	ListW9ByStatus(ctx context.Context, status domain.W9Status) ([]domain.W9Information, error)

	// SaveTaxDocument inserts a document; a second (consultant, year, type) is ErrDuplicate.
	SaveTaxDocument(ctx context.Context, tx pgx.Tx, doc domain.TaxDocument) error
	FindTaxDocumentByIDForUpdate(ctx context.Context, tx pgx.Tx, documentID string) (*domain.TaxDocument, error)
	UpdateTaxDocumentStatus(ctx context.Context, tx pgx.Tx, doc domain.TaxDocument) error
	ListTaxDocuments(ctx context.Context, consultantID *string, year *int) ([]domain.TaxDocument, error)
}

// PaymentRepositoryWithTx combines payment-side repositories.
type PaymentRepositoryWithTx interface {
	PaymentTransactionRepository
	ReconciliationRepository
	PaymentAuditWriter
	PaymentAuditReader
	PaymentMethodRepository
	TaxRepository
	TransactionManager
}
