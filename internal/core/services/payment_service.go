package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	auditEntityTransaction    = "payment_transaction"
	auditEntityReconciliation = "payment_reconciliation"
	auditEntityPaymentMethod  = "payment_method"
	auditEntityW9             = "w9_information"
	auditEntityTaxDocument    = "tax_document"
)

type paymentService struct {
	BaseService
	repo       portsrepo.PaymentRepositoryWithTx
	settlement portsrepo.SettlementRepositoryWithTx
	cipher     portssvc.FieldEncryptor
}

// NewPaymentService creates the payment execution, reconciliation and payment method service.
func NewPaymentService(
	repo portsrepo.PaymentRepositoryWithTx,
	settlement portsrepo.SettlementRepositoryWithTx,
	users portsrepo.UserReader,
	cipher portssvc.FieldEncryptor,
	opts ...ServiceOption,
) portssvc.PaymentSvcFacade {
	return &paymentService{
		BaseService: newBaseService(users, opts...),
		repo:        repo,
		settlement:  settlement,
		cipher:      cipher,
	}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// appendPaymentAudit writes one payment audit row inside tx.
func appendPaymentAudit(ctx context.Context, w portsrepo.PaymentAuditWriter, tx pgx.Tx, at time.Time, action domain.PaymentAuditAction, actorID, entityType, entityID string, details map[string]any) error {
	return w.AppendPaymentAudit(ctx, tx, domain.PaymentAuditEntry{
		AuditID:    uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  at,
	})
}

// InitiatePayment opens the external transfer for a released batch. A batch has at most one
// transaction; failed ones are retried rather than replaced.
func (s *paymentService) InitiatePayment(ctx context.Context, batchID string, req dto.InitiatePaymentRequest, actorID string) (*domain.PaymentTransaction, error) {
	if _, err := s.requireFinance(ctx, actorID, "initiate payment for", "batch "+batchID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	batch, err := s.settlement.FindBatchByIDForUpdate(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != domain.BatchReleased {
		return nil, apperrors.NewRuleError("batch not released", "payments can only be initiated for RELEASED batches, batch is "+string(batch.Status))
	}
	if existing, err := s.repo.FindTransactionByBatchID(ctx, tx, batchID); err == nil {
		return nil, fmt.Errorf("%w: batch %s already has payment transaction %s", apperrors.ErrDuplicate, batch.ReferenceNumber, existing.TransactionID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if req.PaymentMethodID != nil {
		method, err := s.repo.FindPaymentMethodByIDForUpdate(ctx, tx, *req.PaymentMethodID)
		if err != nil {
			return nil, err
		}
		if method.Status != domain.MethodVerified {
			return nil, apperrors.NewRuleError("payment method not verified", "payment method "+method.PaymentMethodID+" is "+string(method.Status))
		}
	}

	total, err := s.settlement.SumNetAmountByBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	transaction := domain.PaymentTransaction{
		TransactionID:   uuid.NewString(),
		BatchID:         batchID,
		PaymentMethodID: req.PaymentMethodID,
		TotalAmount:     total,
		Status:          domain.PaymentPending,
		InitiatedBy:     actorID,
		InitiatedAt:     now,
		Notes:           req.Notes,
		AuditFields:     domain.NewAuditFields(actorID, now),
	}
	if err := s.repo.SaveTransaction(ctx, tx, transaction); err != nil {
		s.logUnexpected(ctx, err, "Failed to save payment transaction", slog.String("batch_id", batchID))
		return nil, err
	}
	details := map[string]any{"batchID": batchID, "totalAmount": total.StringFixed(2)}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, domain.AuditTransactionInitiated, actorID, auditEntityTransaction, transaction.TransactionID, details); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Payment initiated", slog.String("transaction_id", transaction.TransactionID), slog.String("batch_id", batchID), slog.String("amount", total.StringFixed(2)))
	return &transaction, nil
}

// ConfirmPayment completes the transfer and stamps the batch's payouts with the external reference.
func (s *paymentService) ConfirmPayment(ctx context.Context, transactionID string, req dto.ConfirmPaymentRequest, actorID string) (*domain.PaymentTransaction, error) {
	return s.updateTransaction(ctx, transactionID, actorID, "confirm", domain.AuditTransactionConfirmed,
		func(tx pgx.Tx, t *domain.PaymentTransaction, now time.Time) (map[string]any, error) {
			if t.Status == domain.PaymentCompleted {
				return nil, errAlreadyApplied
			}
			if err := t.Confirm(strings.TrimSpace(req.ExternalReference), req.ConfirmationCode, actorID, now); err != nil {
				return nil, err
			}
			if req.Notes != "" {
				t.Notes = req.Notes
			}
			stamped, err := s.settlement.StampPayoutPayment(ctx, tx, t.BatchID, *t.ExternalReference, now, actorID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"externalReference": *t.ExternalReference, "payoutsStamped": stamped}, nil
		})
}

func (s *paymentService) MarkPaymentFailed(ctx context.Context, transactionID, reason, actorID string) (*domain.PaymentTransaction, error) {
	return s.updateTransaction(ctx, transactionID, actorID, "fail", domain.AuditTransactionFailed,
		func(_ pgx.Tx, t *domain.PaymentTransaction, now time.Time) (map[string]any, error) {
			if err := t.Fail(strings.TrimSpace(reason), actorID, now); err != nil {
				return nil, err
			}
			return map[string]any{"reason": reason}, nil
		})
}

func (s *paymentService) RetryPayment(ctx context.Context, transactionID, actorID string) (*domain.PaymentTransaction, error) {
	return s.updateTransaction(ctx, transactionID, actorID, "retry", domain.AuditTransactionRetried,
		func(_ pgx.Tx, t *domain.PaymentTransaction, now time.Time) (map[string]any, error) {
			if err := t.Retry(actorID, now); err != nil {
				return nil, err
			}
			return map[string]any{"retryCount": t.RetryCount}, nil
		})
}

func (s *paymentService) CancelPayment(ctx context.Context, transactionID, actorID string) (*domain.PaymentTransaction, error) {
	return s.updateTransaction(ctx, transactionID, actorID, "cancel", domain.AuditTransactionCancelled,
		func(_ pgx.Tx, t *domain.PaymentTransaction, now time.Time) (map[string]any, error) {
			if err := t.Cancel(actorID, now); err != nil {
				return nil, err
			}
			return nil, nil
		})
}

// errAlreadyApplied lets a mutation report that the transaction is already in the requested
// end state; updateTransaction then returns it without writing anything.
var errAlreadyApplied = errors.New("already applied")

// updateTransaction locks a transaction, applies mutate, persists it and audits the change.
func (s *paymentService) updateTransaction(
	ctx context.Context,
	transactionID, actorID, verb string,
	action domain.PaymentAuditAction,
	mutate func(tx pgx.Tx, t *domain.PaymentTransaction, now time.Time) (map[string]any, error),
) (*domain.PaymentTransaction, error) {
	if _, err := s.requireFinance(ctx, actorID, verb, "payment transaction "+transactionID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	transaction, err := s.repo.FindTransactionByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	from := transaction.Status
	now := s.now()
	details, err := mutate(tx, transaction, now)
	if errors.Is(err, errAlreadyApplied) {
		return transaction, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTransaction(ctx, tx, *transaction); err != nil {
		s.LogError(ctx, err, "Failed to update payment transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}
	if details == nil {
		details = map[string]any{}
	}
	details["fromStatus"] = string(from)
	details["toStatus"] = string(transaction.Status)
	if err := appendPaymentAudit(ctx, s.repo, tx, now, action, actorID, auditEntityTransaction, transactionID, details); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Payment transaction updated",
		slog.String("transaction_id", transactionID),
		slog.String("from_status", string(from)),
		slog.String("to_status", string(transaction.Status)))
	return transaction, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	return s.repo.FindTransactionByID(ctx, transactionID)
}

func (s *paymentService) ListTransactions(ctx context.Context, status *domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	transactions, err := s.repo.ListTransactions(ctx, status)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payment transactions")
		return nil, err
	}
	if transactions == nil {
		return []domain.PaymentTransaction{}, nil
	}
	return transactions, nil
}

// CreateReconciliation compares a released batch's net payable with the amount actually sent.
func (s *paymentService) CreateReconciliation(ctx context.Context, batchID string, req dto.CreateReconciliationRequest, actorID string) (*domain.PaymentReconciliation, error) {
	if _, err := s.requireFinance(ctx, actorID, "reconcile", "batch "+batchID); err != nil {
		return nil, err
	}
	if req.ActualAmount.IsNegative() {
		return nil, apperrors.NewValidationError("actualAmount", "must not be negative")
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	batch, err := s.settlement.FindBatchByIDForUpdate(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != domain.BatchReleased {
		return nil, apperrors.NewRuleError("batch not released", "only RELEASED batches can be reconciled, batch is "+string(batch.Status))
	}
	expected, err := s.settlement.SumNetAmountByBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}

	transactionID := req.TransactionID
	if transactionID == nil {
		transaction, err := s.repo.FindTransactionByBatchID(ctx, tx, batchID)
		switch {
		case err == nil:
			transactionID = &transaction.TransactionID
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, err
		}
	}

	now := s.now()
	reconciliationDate := now
	if req.ReconciliationDate != nil {
		reconciliationDate = req.ReconciliationDate.UTC()
	}
	reconciliation := domain.PaymentReconciliation{
		ReconciliationID:   uuid.NewString(),
		BatchID:            batchID,
		TransactionID:      transactionID,
		ReconciliationDate: domain.DateOnly(reconciliationDate),
		ExpectedAmount:     expected,
		ActualAmount:       req.ActualAmount,
		Notes:              req.Notes,
		ReconciledBy:       actorID,
		CreatedAt:          now,
	}
	reconciliation.Evaluate()

	if err := s.repo.SaveReconciliation(ctx, tx, reconciliation); err != nil {
		return nil, err
	}
	details := map[string]any{
		"batchID":     batchID,
		"expected":    expected.StringFixed(2),
		"actual":      req.ActualAmount.StringFixed(2),
		"discrepancy": reconciliation.Discrepancy.StringFixed(2),
		"status":      string(reconciliation.Status),
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, domain.AuditReconciliationCreated, actorID, auditEntityReconciliation, reconciliation.ReconciliationID, details); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	if reconciliation.Status == domain.ReconciliationDiscrepancy {
		s.GetLogger(ctx).Warn("Reconciliation discrepancy",
			slog.String("batch_id", batchID),
			slog.String("discrepancy", reconciliation.Discrepancy.StringFixed(2)))
	}
	return &reconciliation, nil
}

func (s *paymentService) ResolveDiscrepancy(ctx context.Context, reconciliationID, notes, actorID string) (*domain.PaymentReconciliation, error) {
	if _, err := s.requireFinance(ctx, actorID, "resolve", "reconciliation "+reconciliationID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	reconciliation, err := s.repo.FindReconciliationByIDForUpdate(ctx, tx, reconciliationID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := reconciliation.Resolve(strings.TrimSpace(notes), actorID, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReconciliation(ctx, tx, *reconciliation); err != nil {
		return nil, err
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, domain.AuditDiscrepancyResolved, actorID, auditEntityReconciliation, reconciliationID,
		map[string]any{"discrepancy": reconciliation.Discrepancy.StringFixed(2)}); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return reconciliation, nil
}

func (s *paymentService) ListReconciliations(ctx context.Context, status *domain.ReconciliationStatus) ([]domain.PaymentReconciliation, error) {
	reconciliations, err := s.repo.ListReconciliations(ctx, status)
	if err != nil {
		return nil, err
	}
	if reconciliations == nil {
		return []domain.PaymentReconciliation{}, nil
	}
	return reconciliations, nil
}

// AddPaymentMethod stores encrypted bank details for a consultant. New methods start PENDING.
func (s *paymentService) AddPaymentMethod(ctx context.Context, req dto.AddPaymentMethodRequest, actorID string) (*domain.PaymentMethod, error) {
	if req.ConsultantID == "" {
		req.ConsultantID = actorID
	}
	if _, err := s.requireSelfOrFinance(ctx, actorID, req.ConsultantID, "add payment method for", "consultant "+req.ConsultantID); err != nil {
		return nil, err
	}
	methodType := domain.PaymentMethodType(req.MethodType)
	if !methodType.IsValid() {
		return nil, apperrors.NewValidationError("methodType", "must be ACH, WIRE or CHECK")
	}
	if methodType != domain.MethodCheck && (req.AccountNumber == "" || req.RoutingNumber == "") {
		return nil, apperrors.NewValidationError("accountNumber", "account and routing numbers are required for "+string(req.MethodType))
	}

	now := s.now()
	method := domain.PaymentMethod{
		PaymentMethodID: uuid.NewString(),
		ConsultantID:    req.ConsultantID,
		MethodType:      methodType,
		BankName:        strings.TrimSpace(req.BankName),
		Status:          domain.MethodPending,
		AuditFields:     domain.NewAuditFields(actorID, now),
	}
	var err error
	if req.AccountNumber != "" {
		if method.AccountNumberEncrypted, err = s.encrypt(req.AccountNumber); err != nil {
			return nil, err
		}
		method.AccountLast4 = utils.LastDigits(req.AccountNumber, 4)
	}
	if req.RoutingNumber != "" {
		if method.RoutingNumberEncrypted, err = s.encrypt(req.RoutingNumber); err != nil {
			return nil, err
		}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	if err := s.repo.SavePaymentMethod(ctx, tx, method); err != nil {
		s.logUnexpected(ctx, err, "Failed to save payment method", slog.String("consultant_id", req.ConsultantID))
		return nil, err
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, domain.AuditPaymentMethodAdded, actorID, auditEntityPaymentMethod, method.PaymentMethodID,
		map[string]any{"consultantID": method.ConsultantID, "methodType": string(methodType), "accountLast4": method.AccountLast4}); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &method, nil
}

func (s *paymentService) VerifyPaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error) {
	if _, err := s.requireFinance(ctx, actorID, "verify", "payment method "+paymentMethodID); err != nil {
		return nil, err
	}
	return s.updatePaymentMethod(ctx, paymentMethodID, actorID, domain.AuditPaymentMethodVerified,
		func(_ pgx.Tx, m *domain.PaymentMethod, now time.Time) error {
			return m.Verify(actorID, now)
		})
}

// SetDefaultPaymentMethod makes a verified method the consultant's only default.
func (s *paymentService) SetDefaultPaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error) {
	return s.updatePaymentMethod(ctx, paymentMethodID, actorID, domain.AuditPaymentMethodDefaultSet,
		func(tx pgx.Tx, m *domain.PaymentMethod, now time.Time) error {
			if _, err := s.requireSelfOrFinance(ctx, actorID, m.ConsultantID, "set default", "payment method "+paymentMethodID); err != nil {
				return err
			}
			if err := m.MakeDefault(actorID, now); err != nil {
				return err
			}
			return s.repo.ClearDefaultPaymentMethods(ctx, tx, m.ConsultantID)
		})
}

// DeactivatePaymentMethod retires a method that no open transaction still uses.
func (s *paymentService) DeactivatePaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error) {
	return s.updatePaymentMethod(ctx, paymentMethodID, actorID, domain.AuditPaymentMethodDeactivate,
		func(tx pgx.Tx, m *domain.PaymentMethod, now time.Time) error {
			if _, err := s.requireSelfOrFinance(ctx, actorID, m.ConsultantID, "deactivate", "payment method "+paymentMethodID); err != nil {
				return err
			}
			open, err := s.repo.CountOpenTransactionsForMethod(ctx, tx, m.PaymentMethodID)
			if err != nil {
				return err
			}
			if open > 0 {
				return apperrors.NewRuleError("payment method in use", fmt.Sprintf("%d open transactions use this payment method", open))
			}
			return m.Deactivate(actorID, now)
		})
}

func (s *paymentService) updatePaymentMethod(
	ctx context.Context,
	paymentMethodID, actorID string,
	action domain.PaymentAuditAction,
	mutate func(tx pgx.Tx, m *domain.PaymentMethod, now time.Time) error,
) (*domain.PaymentMethod, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	method, err := s.repo.FindPaymentMethodByIDForUpdate(ctx, tx, paymentMethodID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := mutate(tx, method, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePaymentMethod(ctx, tx, *method); err != nil {
		return nil, err
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, action, actorID, auditEntityPaymentMethod, paymentMethodID,
		map[string]any{"consultantID": method.ConsultantID, "status": string(method.Status), "isDefault": method.IsDefault}); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return method, nil
}

func (s *paymentService) ListPaymentMethods(ctx context.Context, consultantID, actorID string) ([]domain.PaymentMethod, error) {
	if _, err := s.requireSelfOrFinance(ctx, actorID, consultantID, "list payment methods of", "consultant "+consultantID); err != nil {
		return nil, err
	}
	methods, err := s.repo.ListPaymentMethods(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	if methods == nil {
		return []domain.PaymentMethod{}, nil
	}
	return methods, nil
}

func (s *paymentService) ListAudit(ctx context.Context, entityType, entityID string) ([]domain.PaymentAuditEntry, error) {
	entries, err := s.repo.ListPaymentAudit(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return []domain.PaymentAuditEntry{}, nil
	}
	return entries, nil
}

func (s *paymentService) encrypt(value string) (string, error) {
	if s.cipher == nil {
		return "", apperrors.NewAppError(500, "field encryption is not configured", nil)
	}
	sealed, err := s.cipher.Encrypt(value)
	if err != nil {
		return "", apperrors.NewAppError(500, "failed to encrypt sensitive field", err)
	}
	return sealed, nil
}
