package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/google/uuid"
)

type taxService struct {
	BaseService
	repo       portsrepo.PaymentRepositoryWithTx
	settlement portsrepo.SettlementRepositoryWithTx
	cipher     portssvc.FieldEncryptor
}

// NewTaxService creates the W-9 and 1099 service.
func NewTaxService(
	repo portsrepo.PaymentRepositoryWithTx,
	settlement portsrepo.SettlementRepositoryWithTx,
	users portsrepo.UserReader,
	cipher portssvc.FieldEncryptor,
	opts ...ServiceOption,
) portssvc.TaxSvcFacade {
	return &taxService{
		BaseService: newBaseService(users, opts...),
		repo:        repo,
		settlement:  settlement,
		cipher:      cipher,
	}
}

var _ portssvc.TaxSvcFacade = (*taxService)(nil)

// SubmitW9 stores or replaces a consultant's W-9 with the TIN encrypted. Resubmission
// resets the review.
func (s *taxService) SubmitW9(ctx context.Context, req dto.SubmitW9Request, actorID string) (*domain.W9Information, error) {
	consultantID := req.ConsultantID
	if consultantID == "" {
		consultantID = actorID
	}
	if _, err := s.requireSelfOrFinance(ctx, actorID, consultantID, "submit W-9 for", "consultant "+consultantID); err != nil {
		return nil, err
	}
	if !req.EntityType.IsValid() {
		return nil, apperrors.NewValidationError("entityType", "is not a known entity type")
	}
	tin := strings.TrimSpace(req.TIN)
	if len(utils.LastDigits(tin, 9)) != 9 {
		return nil, apperrors.NewValidationError("tin", "must contain 9 digits")
	}
	if s.cipher == nil {
		return nil, apperrors.NewAppError(500, "field encryption is not configured", nil)
	}
	sealed, err := s.cipher.Encrypt(tin)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to encrypt TIN", err)
	}

	now := s.now()
	w9 := domain.W9Information{
		W9ID:         uuid.NewString(),
		ConsultantID: consultantID,
		LegalName:    strings.TrimSpace(req.LegalName),
		BusinessName: strings.TrimSpace(req.BusinessName),
		EntityType:   req.EntityType,
		TINEncrypted: sealed,
		TINLast4:     utils.LastDigits(tin, 4),
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        strings.ToUpper(req.State),
		ZipCode:      req.ZipCode,
		Status:       domain.W9Pending,
		AuditFields:  domain.NewAuditFields(actorID, now),
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	stored, err := s.repo.UpsertW9(ctx, tx, w9)
	if err != nil {
		s.LogError(ctx, err, "Failed to store W-9", slog.String("consultant_id", consultantID))
		return nil, err
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, domain.AuditW9Submitted, actorID, auditEntityW9, stored.W9ID,
		map[string]any{"consultantID": consultantID, "entityType": string(req.EntityType), "tinLast4": stored.TINLast4}); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "W-9 submitted", slog.String("consultant_id", consultantID))
	return stored, nil
}

func (s *taxService) ApproveW9(ctx context.Context, w9ID, actorID string) (*domain.W9Information, error) {
	return s.reviewW9(ctx, w9ID, true, "", actorID)
}

func (s *taxService) RejectW9(ctx context.Context, w9ID, reason, actorID string) (*domain.W9Information, error) {
	return s.reviewW9(ctx, w9ID, false, strings.TrimSpace(reason), actorID)
}

func (s *taxService) reviewW9(ctx context.Context, w9ID string, approve bool, reason, actorID string) (*domain.W9Information, error) {
	if _, err := s.requireFinance(ctx, actorID, "review", "W-9 "+w9ID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	w9, err := s.repo.FindW9ByIDForUpdate(ctx, tx, w9ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := w9.Review(approve, reason, actorID, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateW9Review(ctx, tx, *w9); err != nil {
		return nil, err
	}
	action, details := domain.AuditW9Approved, map[string]any{"consultantID": w9.ConsultantID}
	if !approve {
		action = domain.AuditW9Rejected
		details["reason"] = reason
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, action, actorID, auditEntityW9, w9ID, details); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return w9, nil
}

func (s *taxService) GetW9(ctx context.Context, consultantID, actorID string) (*domain.W9Information, error) {
	if _, err := s.requireSelfOrFinance(ctx, actorID, consultantID, "view W-9 of", "consultant "+consultantID); err != nil {
		return nil, err
	}
	return s.repo.FindW9ByConsultant(ctx, nil, consultantID)
}

func (s *taxService) ListPendingW9(ctx context.Context, actorID string) ([]domain.W9Information, error) {
	if _, err := s.requireFinance(ctx, actorID, "list", "pending W-9s"); err != nil {
		return nil, err
	}
	pending, err := s.repo.ListW9ByStatus(ctx, domain.W9Pending)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return []domain.W9Information{}, nil
	}
	return pending, nil
}

// Generate1099NEC issues the year's 1099-NEC for a consultant with an approved W-9 whose
// paid total reaches the reporting threshold.
func (s *taxService) Generate1099NEC(ctx context.Context, consultantID string, taxYear int, actorID string) (*domain.TaxDocument, error) {
	if _, err := s.requireFinance(ctx, actorID, "generate 1099-NEC for", "consultant "+consultantID); err != nil {
		return nil, err
	}
	if taxYear < 2000 || taxYear > s.now().Year() {
		return nil, apperrors.NewValidationError("taxYear", "must be between 2000 and the current year")
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	w9, err := s.repo.FindW9ByConsultant(ctx, tx, consultantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewRuleError("W-9 missing", "consultant "+consultantID+" has no W-9 on file")
		}
		return nil, err
	}
	if w9.Status != domain.W9Approved {
		return nil, apperrors.NewRuleError("W-9 not approved", "W-9 for consultant "+consultantID+" is "+string(w9.Status))
	}
	if !w9.EntityType.Requires1099() {
		return nil, apperrors.NewRuleError("1099 exempt", string(w9.EntityType)+" entities do not receive a 1099-NEC")
	}

	total, err := s.settlement.SumPaidNetForConsultantYear(ctx, tx, consultantID, taxYear)
	if err != nil {
		return nil, err
	}
	if total.LessThan(domain.Form1099Threshold) {
		return nil, apperrors.NewRuleError("below 1099 threshold",
			fmt.Sprintf("paid total %s is below %s", total.StringFixed(2), domain.Form1099Threshold.StringFixed(2)))
	}

	now := s.now()
	doc := domain.TaxDocument{
		DocumentID:   uuid.NewString(),
		ConsultantID: consultantID,
		TaxYear:      taxYear,
		DocumentType: domain.TaxDocument1099NEC,
		TotalAmount:  total,
		Status:       domain.TaxDocumentGenerated,
		GeneratedBy:  actorID,
		GeneratedAt:  now,
	}
	doc.FileHash = taxDocumentHash(doc, *w9)

	if err := s.repo.SaveTaxDocument(ctx, tx, doc); err != nil {
		s.logUnexpected(ctx, err, "Failed to save tax document", slog.String("consultant_id", consultantID), slog.Int("tax_year", taxYear))
		return nil, err
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, domain.AuditTaxDocumentGenerated, actorID, auditEntityTaxDocument, doc.DocumentID,
		map[string]any{"consultantID": consultantID, "taxYear": taxYear, "totalAmount": total.StringFixed(2)}); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "1099-NEC generated", slog.String("consultant_id", consultantID), slog.Int("tax_year", taxYear))
	return &doc, nil
}

// taxDocumentHash fingerprints the reportable content of a document.
func taxDocumentHash(doc domain.TaxDocument, w9 domain.W9Information) string {
	content := strings.Join([]string{
		string(doc.DocumentType),
		fmt.Sprint(doc.TaxYear),
		doc.ConsultantID,
		w9.LegalName,
		w9.TINLast4,
		doc.TotalAmount.StringFixed(2),
	}, "|")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (s *taxService) MarkTaxDocumentSent(ctx context.Context, documentID, actorID string) (*domain.TaxDocument, error) {
	return s.advanceTaxDocument(ctx, documentID, domain.TaxDocumentSent, domain.AuditTaxDocumentSent, actorID)
}

func (s *taxService) MarkTaxDocumentFiled(ctx context.Context, documentID, actorID string) (*domain.TaxDocument, error) {
	return s.advanceTaxDocument(ctx, documentID, domain.TaxDocumentFiled, domain.AuditTaxDocumentFiled, actorID)
}

func (s *taxService) advanceTaxDocument(ctx context.Context, documentID string, target domain.TaxDocumentStatus, action domain.PaymentAuditAction, actorID string) (*domain.TaxDocument, error) {
	if _, err := s.requireFinance(ctx, actorID, "update", "tax document "+documentID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	doc, err := s.repo.FindTaxDocumentByIDForUpdate(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := doc.Advance(target, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTaxDocumentStatus(ctx, tx, *doc); err != nil {
		return nil, err
	}
	if err := appendPaymentAudit(ctx, s.repo, tx, now, action, actorID, auditEntityTaxDocument, documentID,
		map[string]any{"status": string(target)}); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *taxService) ListTaxDocuments(ctx context.Context, consultantID *string, year *int) ([]domain.TaxDocument, error) {
	docs, err := s.repo.ListTaxDocuments(ctx, consultantID, year)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		return []domain.TaxDocument{}, nil
	}
	return docs, nil
}
