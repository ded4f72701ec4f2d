package services

import (
	"context"
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
	"github.com/SscSPs/onesuite_backend/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payoutService struct {
	BaseService
	repo        portsrepo.SettlementRepositoryWithTx
	commissions portsrepo.CommissionRepositoryWithTx
	approvals   portsrepo.ApprovalRepositoryFacade
}

// NewPayoutService creates the settlement engine.
func NewPayoutService(
	repo portsrepo.SettlementRepositoryWithTx,
	commissions portsrepo.CommissionRepositoryWithTx,
	approvals portsrepo.ApprovalRepositoryFacade,
	users portsrepo.UserReader,
	opts ...ServiceOption,
) portssvc.PayoutSvcFacade {
	return &payoutService{
		BaseService: newBaseService(users, opts...),
		repo:        repo,
		commissions: commissions,
		approvals:   approvals,
	}
}

var _ portssvc.PayoutSvcFacade = (*payoutService)(nil)

func (s *payoutService) CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*domain.PayoutPeriod, error) {
	if _, err := s.requireFinance(ctx, actorID, "create", "payout period"); err != nil {
		return nil, err
	}
	now := s.now()
	period := domain.PayoutPeriod{
		PeriodID:     uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		StartDate:    domain.DateOnly(req.StartDate),
		EndDate:      domain.DateOnly(req.EndDate),
		Status:       domain.PeriodOpen,
		IsTaxYearEnd: req.IsTaxYearEnd,
		AuditFields:  domain.NewAuditFields(actorID, now),
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SavePeriod(ctx, period); err != nil {
		s.logUnexpected(ctx, err, "Failed to save payout period", slog.String("name", period.Name))
		return nil, err
	}
	s.LogInfo(ctx, "Payout period created", slog.String("period_id", period.PeriodID), slog.String("name", period.Name))
	return &period, nil
}

func (s *payoutService) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.PayoutPeriod, error) {
	periods, err := s.repo.ListPeriods(ctx, status)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payout periods")
		return nil, err
	}
	if periods == nil {
		return []domain.PayoutPeriod{}, nil
	}
	return periods, nil
}

// ClosePeriod closes an open period. Periods with batches still in DRAFT or LOCKED stay open.
func (s *payoutService) ClosePeriod(ctx context.Context, periodID, actorID string) (*domain.PayoutPeriod, error) {
	if _, err := s.requireFinance(ctx, actorID, "close", "payout period "+periodID); err != nil {
		return nil, err
	}
	period, err := s.repo.FindPeriodByID(ctx, nil, periodID)
	if err != nil {
		return nil, err
	}
	if period.Status == domain.PeriodClosed {
		return nil, apperrors.NewStateError("payout period", periodID, string(period.Status), string(domain.PeriodClosed))
	}
	batches, err := s.repo.ListBatches(ctx, &periodID, nil)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if !b.Status.IsTerminal() {
			return nil, apperrors.NewRuleError("period has open batches", fmt.Sprintf("batch %s is still %s", b.ReferenceNumber, b.Status))
		}
	}

	period.Status = domain.PeriodClosed
	period.Touch(actorID, s.now())
	if err := s.repo.UpdatePeriod(ctx, *period); err != nil {
		s.LogError(ctx, err, "Failed to close payout period", slog.String("period_id", periodID))
		return nil, err
	}
	s.LogInfo(ctx, "Payout period closed", slog.String("period_id", periodID))
	return period, nil
}

// CreateBatchForPeriod creates a DRAFT batch and fills it from the eligible pool in one
// transaction.
func (s *payoutService) CreateBatchForPeriod(ctx context.Context, req dto.CreateBatchRequest, actorID string) (*domain.PayoutBatch, *domain.GenerationResult, error) {
	if _, err := s.requireFinance(ctx, actorID, "create", "payout batch"); err != nil {
		return nil, nil, err
	}
	suffix, err := utils.ReferenceSuffix()
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to generate batch reference", err)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	period, err := s.repo.FindPeriodByID(ctx, tx, req.PeriodID)
	if err != nil {
		return nil, nil, err
	}
	if period.Status == domain.PeriodClosed {
		return nil, nil, apperrors.NewRuleError("period closed", "cannot create a batch in closed period "+period.Name)
	}

	now := s.now()
	runDate := now
	if req.RunDate != nil {
		runDate = req.RunDate.UTC()
	}
	batch := domain.PayoutBatch{
		BatchID:         uuid.NewString(),
		PeriodID:        period.PeriodID,
		ReferenceNumber: domain.BatchReference(period.Name, now, suffix),
		RunDate:         runDate,
		Status:          domain.BatchDraft,
		Notes:           req.Notes,
		AuditFields:     domain.NewAuditFields(actorID, now),
	}
	if err := s.repo.SaveBatch(ctx, tx, batch); err != nil {
		s.logUnexpected(ctx, err, "Failed to save payout batch", slog.String("reference", batch.ReferenceNumber))
		return nil, nil, err
	}
	if err := s.appendHistory(ctx, tx, batch.BatchID, domain.PayoutHistoryCreate, actorID, "Batch created for period "+period.Name); err != nil {
		return nil, nil, err
	}

	result, err := s.generate(ctx, tx, batch, actorID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, nil, err
	}

	s.LogInfo(ctx, "Payout batch created",
		slog.String("batch_id", batch.BatchID),
		slog.String("reference", batch.ReferenceNumber),
		slog.Int("payouts", result.PayoutsTouched),
		slog.Int("line_items", result.LineItemsCreated))
	return &batch, result, nil
}

// GenerateDraftPayouts pulls any newly eligible commissions into a DRAFT batch. Running it
// twice with nothing new approved changes nothing.
func (s *payoutService) GenerateDraftPayouts(ctx context.Context, batchID, actorID string) (*domain.GenerationResult, error) {
	if _, err := s.requireFinance(ctx, actorID, "generate payouts for", "batch "+batchID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	batch, err := s.repo.FindBatchByIDForUpdate(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != domain.BatchDraft {
		return nil, apperrors.NewRuleError("batch not draft", "payouts can only be generated into a DRAFT batch, batch is "+string(batch.Status))
	}

	result, err := s.generate(ctx, tx, *batch, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Draft payouts generated",
		slog.String("batch_id", batchID),
		slog.Int("line_items", result.LineItemsCreated),
		slog.Int("skipped", result.SkippedClaimed))
	return result, nil
}

// generate claims eligible commissions for the batch, one payout per payee.
func (s *payoutService) generate(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch, actorID string) (*domain.GenerationResult, error) {
	eligible, err := s.commissions.FindEligibleForUpdate(ctx, tx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load eligible commissions", slog.String("batch_id", batch.BatchID))
		return nil, err
	}

	result := &domain.GenerationResult{TotalAmount: decimal.Zero}
	var payees []string
	byPayee := make(map[string][]domain.Commission)
	for _, c := range eligible {
		payee := c.PayeeID()
		if _, seen := byPayee[payee]; !seen {
			payees = append(payees, payee)
		}
		byPayee[payee] = append(byPayee[payee], c)
	}

	now := s.now()
	for _, payee := range payees {
		group := byPayee[payee]
		payout, err := s.repo.UpsertPayout(ctx, tx, domain.Payout{
			PayoutID:        uuid.NewString(),
			BatchID:         batch.BatchID,
			ConsultantID:    payee,
			TotalCommission: decimal.Zero,
			TotalAdjustment: decimal.Zero,
			TotalTax:        decimal.Zero,
			NetAmount:       decimal.Zero,
			Status:          domain.PayoutDraft,
			AuditFields:     domain.NewAuditFields(actorID, now),
		})
		if err != nil {
			return nil, err
		}

		items := make([]domain.PayoutLineItem, len(group))
		for i, c := range group {
			items[i] = domain.PayoutLineItem{
				LineItemID:   uuid.NewString(),
				PayoutID:     payout.PayoutID,
				CommissionID: c.CommissionID,
				Amount:       c.CalculatedAmount,
				Description:  domain.LineItemDescription(c),
				CreatedAt:    now,
			}
		}
		inserted, err := s.repo.InsertLineItems(ctx, tx, items)
		if err != nil {
			return nil, err
		}
		result.SkippedClaimed += len(items) - len(inserted)
		if len(inserted) == 0 {
			if _, err := s.repo.DeletePayoutIfEmpty(ctx, tx, payout.PayoutID); err != nil {
				return nil, err
			}
			continue
		}

		claimed := make(map[string]struct{}, len(inserted))
		amounts := []decimal.Decimal{result.TotalAmount}
		for _, item := range inserted {
			claimed[item.CommissionID] = struct{}{}
			amounts = append(amounts, item.Amount)
		}
		for _, c := range group {
			if _, ok := claimed[c.CommissionID]; ok {
				payout.AddCommission(c)
			}
		}
		result.TotalAmount = accounting.SumAmounts(amounts...)
		payout.Touch(actorID, now)
		if err := s.repo.UpdatePayoutTotals(ctx, tx, *payout); err != nil {
			return nil, err
		}
		result.PayoutsTouched++
		result.LineItemsCreated += len(inserted)
	}
	return result, nil
}

// LockBatch freezes a DRAFT batch. Empty batches cannot be locked.
func (s *payoutService) LockBatch(ctx context.Context, batchID, actorID string) (*domain.PayoutBatch, error) {
	if _, err := s.requireFinance(ctx, actorID, "lock", "batch "+batchID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	batch, err := s.repo.FindBatchByIDForUpdate(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if !batch.Status.CanTransitionTo(domain.BatchLocked) {
		return nil, apperrors.NewStateError("payout batch", batchID, string(batch.Status), string(domain.BatchLocked))
	}
	count, err := s.repo.CountPayoutsByBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, apperrors.NewValidationError("batchID", "batch has no payouts to lock")
	}

	if err := batch.TransitionTo(domain.BatchLocked, actorID, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBatchStatus(ctx, tx, *batch); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, tx, batchID, domain.PayoutHistoryLock, actorID, fmt.Sprintf("Locked with %d payouts", count)); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Payout batch locked", slog.String("batch_id", batchID), slog.Int("payouts", count))
	return batch, nil
}

// ReleaseBatch pays a LOCKED batch. Every linked commission must still be approved; if any
// is not, nothing changes.
func (s *payoutService) ReleaseBatch(ctx context.Context, batchID, actorID string) (*domain.PayoutBatch, error) {
	if _, err := s.requireFinance(ctx, actorID, "release", "batch "+batchID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	batch, err := s.repo.FindBatchByIDForUpdate(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := batch.TransitionTo(domain.BatchReleased, actorID, now); err != nil {
		return nil, err
	}

	ids, err := s.repo.ListCommissionIDsByBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	commissions, err := s.commissions.FindCommissionsByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(commissions) != len(ids) {
		return nil, apperrors.NewRuleError("batch commissions missing", fmt.Sprintf("expected %d commissions, found %d", len(ids), len(commissions)))
	}
	for _, c := range commissions {
		if c.State != domain.CommissionApproved {
			return nil, apperrors.NewRuleError("commission not approved",
				fmt.Sprintf("commission %s is %s, batch cannot be released", c.ReferenceNumber, c.State))
		}
	}

	updated, err := s.commissions.MarkCommissionsPaid(ctx, tx, ids, actorID, now)
	if err != nil {
		return nil, err
	}
	if updated != int64(len(ids)) {
		return nil, apperrors.NewRuleError("commission not approved",
			fmt.Sprintf("only %d of %d commissions could be marked paid", updated, len(ids)))
	}
	if _, err := s.repo.MarkPayoutsPaid(ctx, tx, batchID, now, actorID); err != nil {
		return nil, err
	}
	if err := s.recordPaidHistory(ctx, tx, commissions, batch.ReferenceNumber, actorID, now); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBatchStatus(ctx, tx, *batch); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, tx, batchID, domain.PayoutHistoryRelease, actorID, fmt.Sprintf("Released %d commissions", len(ids))); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Payout batch released", slog.String("batch_id", batchID), slog.Int("commissions", len(ids)))
	return batch, nil
}

// recordPaidHistory writes one PAID approval history row per released commission.
func (s *payoutService) recordPaidHistory(ctx context.Context, tx pgx.Tx, commissions []domain.Commission, batchRef, actorID string, at time.Time) error {
	if len(commissions) == 0 {
		return nil
	}
	ids := make([]string, len(commissions))
	for i, c := range commissions {
		ids[i] = c.CommissionID
	}
	records, err := s.approvals.FindApprovalsByCommissionIDs(ctx, tx, ids)
	if err != nil {
		return err
	}

	entries := make([]domain.ApprovalHistoryEntry, 0, len(commissions))
	for _, c := range commissions {
		record, ok := records[c.CommissionID]
		if !ok {
			record = domain.CommissionApproval{
				ApprovalID:   uuid.NewString(),
				CommissionID: c.CommissionID,
				ApproverRole: string(domain.RoleFinance),
				CreatedAt:    at,
			}
			if err := s.approvals.SaveApproval(ctx, tx, record); err != nil {
				return err
			}
		}
		entries = append(entries, domain.ApprovalHistoryEntry{
			HistoryID:    uuid.NewString(),
			ApprovalID:   record.ApprovalID,
			CommissionID: c.CommissionID,
			Action:       domain.ApprovalActionPaid,
			ActorID:      actorID,
			FromState:    domain.CommissionApproved,
			ToState:      domain.CommissionPaid,
			Notes:        "Paid in batch " + batchRef,
			CreatedAt:    at,
		})
	}
	return s.approvals.AppendApprovalHistory(ctx, tx, entries...)
}

// VoidBatch cancels a DRAFT or LOCKED batch and returns its commissions to the eligible pool.
func (s *payoutService) VoidBatch(ctx context.Context, batchID, actorID, reason string) (*domain.PayoutBatch, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "is required to void a batch")
	}
	if _, err := s.requireFinance(ctx, actorID, "void", "batch "+batchID); err != nil {
		return nil, err
	}
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	batch, err := s.repo.FindBatchByIDForUpdate(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if err := batch.TransitionTo(domain.BatchVoid, actorID, s.now()); err != nil {
		return nil, err
	}
	released, err := s.repo.DeleteLineItemsByBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBatchStatus(ctx, tx, *batch); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, tx, batchID, domain.PayoutHistoryVoid, actorID, fmt.Sprintf("%s (%d commissions returned to pool)", reason, released)); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Payout batch voided", slog.String("batch_id", batchID), slog.Int64("returned", released))
	return batch, nil
}

func (s *payoutService) GetBatch(ctx context.Context, batchID string) (*domain.PayoutBatch, error) {
	return s.repo.FindBatchByID(ctx, batchID)
}

func (s *payoutService) ListBatches(ctx context.Context, periodID *string, status *domain.BatchStatus) ([]domain.PayoutBatch, error) {
	batches, err := s.repo.ListBatches(ctx, periodID, status)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payout batches")
		return nil, err
	}
	if batches == nil {
		return []domain.PayoutBatch{}, nil
	}
	return batches, nil
}

func (s *payoutService) ListPayouts(ctx context.Context, batchID string) ([]domain.Payout, error) {
	if _, err := s.repo.FindBatchByID(ctx, batchID); err != nil {
		return nil, err
	}
	payouts, err := s.repo.ListPayoutsByBatch(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}
	if payouts == nil {
		return []domain.Payout{}, nil
	}
	return payouts, nil
}

func (s *payoutService) ListLineItems(ctx context.Context, payoutID string) ([]domain.PayoutLineItem, error) {
	items, err := s.repo.ListLineItemsByPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		return []domain.PayoutLineItem{}, nil
	}
	return items, nil
}

func (s *payoutService) GetBatchHistory(ctx context.Context, batchID string) ([]domain.PayoutHistoryEntry, error) {
	if _, err := s.repo.FindBatchByID(ctx, batchID); err != nil {
		return nil, err
	}
	history, err := s.repo.ListPayoutHistory(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		return []domain.PayoutHistoryEntry{}, nil
	}
	return history, nil
}

func (s *payoutService) appendHistory(ctx context.Context, tx pgx.Tx, batchID string, action domain.PayoutHistoryAction, actorID, notes string) error {
	err := s.repo.AppendPayoutHistory(ctx, tx, domain.PayoutHistoryEntry{
		HistoryID: uuid.NewString(),
		BatchID:   batchID,
		Action:    action,
		ActorID:   actorID,
		Notes:     notes,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to append payout history", slog.String("batch_id", batchID), slog.String("action", string(action)))
	}
	return err
}
