package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCommissionPageSize = 20
	maxCommissionPageSize     = 100
)

var hundred = decimal.NewFromInt(100)

// OverridePolicy is the level-indexed override rate table.
type OverridePolicy struct {
	MaxLevels int
	Rates     map[int]decimal.Decimal
}

// RateFor returns the percentage for a level; unconfigured levels earn nothing.
func (p OverridePolicy) RateFor(level int) decimal.Decimal {
	if rate, ok := p.Rates[level]; ok {
		return rate
	}
	return decimal.Zero
}

// DefaultOverridePolicy pays 2% to the direct manager and 1% one level up.
func DefaultOverridePolicy() OverridePolicy {
	return OverridePolicy{
		MaxLevels: 2,
		Rates: map[int]decimal.Decimal{
			1: decimal.RequireFromString("2.00"),
			2: decimal.RequireFromString("1.00"),
		},
	}
}

type commissionService struct {
	BaseService
	repo      portsrepo.CommissionRepositoryWithTx
	hierarchy portssvc.HierarchyResolverSvc
	policy    OverridePolicy
}

// NewCommissionService creates the commission creation service.
func NewCommissionService(
	repo portsrepo.CommissionRepositoryWithTx,
	hierarchy portssvc.HierarchyResolverSvc,
	users portsrepo.UserReader,
	policy OverridePolicy,
	opts ...ServiceOption,
) portssvc.CommissionSvcFacade {
	return &commissionService{
		BaseService: newBaseService(users, opts...),
		repo:        repo,
		hierarchy:   hierarchy,
		policy:      policy,
	}
}

var _ portssvc.CommissionSvcFacade = (*commissionService)(nil)

func validateCreateCommission(req dto.CreateCommissionRequest) error {
	if strings.TrimSpace(req.ConsultantID) == "" {
		return apperrors.NewValidationError("consultantID", "is required")
	}
	if strings.TrimSpace(req.ReferenceNumber) == "" {
		return apperrors.NewValidationError("referenceNumber", "must not be blank")
	}
	if req.TransactionDate.IsZero() {
		return apperrors.NewValidationError("transactionDate", "is required")
	}
	if !req.SaleAmount.IsPositive() {
		return apperrors.NewValidationError("saleAmount", "must be positive")
	}
	if req.CommissionRate.IsNegative() || req.CommissionRate.GreaterThan(hundred) {
		return apperrors.NewValidationError("commissionRate", "must be between 0 and 100")
	}
	if req.GSTRate.IsNegative() || req.GSTRate.GreaterThan(hundred) {
		return apperrors.NewValidationError("gstRate", "must be between 0 and 100")
	}
	return nil
}

// CreateBaseWithOverrides inserts the base commission and one override per manager in the
// chain inside a single transaction. A duplicate reference aborts everything.
func (s *commissionService) CreateBaseWithOverrides(ctx context.Context, req dto.CreateCommissionRequest, actorID string) (*portssvc.CommissionCreationResult, error) {
	if err := validateCreateCommission(req); err != nil {
		return nil, err
	}
	if _, err := s.requireSelfOrFinance(ctx, actorID, req.ConsultantID, "create commission for", "consultant "+req.ConsultantID); err != nil {
		return nil, err
	}
	if _, err := s.userReader.FindUserByID(ctx, req.ConsultantID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("consultantID", "does not exist")
		}
		return nil, err
	}

	now := s.now()
	reference := strings.TrimSpace(req.ReferenceNumber)
	txDate := domain.DateOnly(req.TransactionDate)

	base := domain.Commission{
		CommissionID:     uuid.NewString(),
		Kind:             domain.BaseCommission{},
		ConsultantID:     req.ConsultantID,
		TransactionDate:  txDate,
		SaleAmount:       req.SaleAmount,
		GSTRate:          req.GSTRate,
		CommissionRate:   req.CommissionRate,
		CalculatedAmount: accounting.CalculateCommission(req.SaleAmount, req.CommissionRate, req.GSTRate),
		State:            domain.CommissionDraft,
		ReferenceNumber:  reference,
		ClientName:       req.ClientName,
		Notes:            req.Notes,
		AuditFields:      domain.NewAuditFields(actorID, now),
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	if err := s.repo.SaveCommission(ctx, tx, base); err != nil {
		s.logUnexpected(ctx, err, "Failed to save base commission", slog.String("reference", reference))
		return nil, err
	}

	chain, err := s.hierarchy.ResolveOverrideChain(ctx, tx, req.ConsultantID, txDate, s.policy.MaxLevels)
	if err != nil {
		s.LogError(ctx, err, "Failed to resolve override chain", slog.String("consultant_id", req.ConsultantID))
		return nil, err
	}

	overrides := make([]domain.Commission, 0, len(chain))
	for _, link := range chain {
		rate := s.policy.RateFor(link.Level)
		override := domain.Commission{
			CommissionID: uuid.NewString(),
			Kind: domain.OverrideCommission{
				ParentID:  base.CommissionID,
				ManagerID: link.ManagerID,
				Level:     link.Level,
			},
			ConsultantID:     req.ConsultantID,
			TransactionDate:  txDate,
			SaleAmount:       req.SaleAmount,
			GSTRate:          req.GSTRate,
			CommissionRate:   rate,
			CalculatedAmount: accounting.CalculateCommission(req.SaleAmount, rate, req.GSTRate),
			State:            domain.CommissionDraft,
			ReferenceNumber:  fmt.Sprintf("%s-OVR-L%d", reference, link.Level),
			ClientName:       req.ClientName,
			Notes:            fmt.Sprintf("Level %d override for %s", link.Level, req.ConsultantID),
			AuditFields:      domain.NewAuditFields(actorID, now),
		}
		if err := s.repo.SaveCommission(ctx, tx, override); err != nil {
			s.logUnexpected(ctx, err, "Failed to save override commission", slog.String("reference", override.ReferenceNumber))
			return nil, err
		}
		overrides = append(overrides, override)
	}

	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Commission created",
		slog.String("commission_id", base.CommissionID),
		slog.String("reference", reference),
		slog.Int("overrides", len(overrides)),
		slog.String("actor_id", actorID))

	return &portssvc.CommissionCreationResult{
		Base:         base,
		Overrides:    overrides,
		TotalCreated: 1 + len(overrides),
	}, nil
}

// CreateAdjustment records a correction against a paid commission as a new draft commission.
func (s *commissionService) CreateAdjustment(ctx context.Context, originalID string, req dto.CreateAdjustmentRequest, actorID string) (*domain.Commission, error) {
	if _, err := s.requireFinance(ctx, actorID, "create adjustment for", "commission "+originalID); err != nil {
		return nil, err
	}
	if req.Amount.IsZero() {
		return nil, apperrors.NewValidationError("amount", "adjustment amount cannot be zero")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.NewValidationError("reason", "is required")
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	original, err := s.repo.FindCommissionByIDForUpdate(ctx, tx, originalID)
	if err != nil {
		return nil, err
	}
	if original.State != domain.CommissionPaid {
		return nil, apperrors.NewRuleError("adjustment requires paid commission",
			fmt.Sprintf("commission %s is %s, adjustments can only be created for paid commissions", original.ReferenceNumber, original.State))
	}

	now := s.now()
	managerID, _ := original.ManagerID()
	adjustment := domain.Commission{
		CommissionID:     uuid.NewString(),
		Kind:             domain.AdjustmentCommission{OriginalID: original.CommissionID, ManagerID: managerID},
		ConsultantID:     original.ConsultantID,
		TransactionDate:  original.TransactionDate,
		SaleAmount:       original.SaleAmount,
		GSTRate:          original.GSTRate,
		CommissionRate:   original.CommissionRate,
		CalculatedAmount: accounting.RoundMoney(req.Amount),
		State:            domain.CommissionDraft,
		ReferenceNumber:  fmt.Sprintf("%s-ADJ-%s", original.ReferenceNumber, now.Format("20060102150405")),
		ClientName:       original.ClientName,
		Notes:            req.Reason,
		AuditFields:      domain.NewAuditFields(actorID, now),
	}
	if err := adjustment.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveCommission(ctx, tx, adjustment); err != nil {
		s.logUnexpected(ctx, err, "Failed to save adjustment", slog.String("reference", adjustment.ReferenceNumber))
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Adjustment created",
		slog.String("commission_id", adjustment.CommissionID),
		slog.String("adjustment_for", original.CommissionID),
		slog.String("amount", adjustment.CalculatedAmount.StringFixed(2)),
		slog.String("actor_id", actorID))
	return &adjustment, nil
}

func (s *commissionService) GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error) {
	c, err := s.repo.FindCommissionByID(ctx, commissionID)
	if err != nil {
		s.logUnexpected(ctx, err, "Failed to find commission", slog.String("commission_id", commissionID))
		return nil, err
	}
	return c, nil
}

func (s *commissionService) ListCommissions(ctx context.Context, params dto.ListCommissionsParams) (*dto.ListCommissionsResponse, error) {
	var filter portsrepo.CommissionFilter
	if params.ConsultantID != "" {
		filter.ConsultantID = &params.ConsultantID
	}
	if params.State != "" {
		state := domain.CommissionState(params.State)
		if !state.IsValid() {
			return nil, apperrors.NewValidationError("state", "unknown state "+params.State)
		}
		filter.State = &state
	}
	if params.Type != "" {
		t := domain.CommissionType(params.Type)
		if t != domain.CommissionTypeBase && t != domain.CommissionTypeOverride && t != domain.CommissionTypeAdjustment {
			return nil, apperrors.NewValidationError("type", "unknown commission type "+params.Type)
		}
		filter.CommissionType = &t
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultCommissionPageSize
	}
	if limit > maxCommissionPageSize {
		limit = maxCommissionPageSize
	}
	var token *string
	if params.NextToken != "" {
		token = &params.NextToken
	}

	commissions, next, err := s.repo.ListCommissions(ctx, filter, limit, token)
	if err != nil {
		s.logUnexpected(ctx, err, "Failed to list commissions")
		return nil, err
	}
	return &dto.ListCommissionsResponse{
		Commissions: dto.ToListCommissionResponse(commissions),
		NextToken:   next,
	}, nil
}

func (s *commissionService) ListOverrides(ctx context.Context, baseID string) ([]domain.Commission, error) {
	overrides, err := s.repo.ListOverridesByParent(ctx, baseID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list overrides", slog.String("commission_id", baseID))
		return nil, err
	}
	if overrides == nil {
		return []domain.Commission{}, nil
	}
	return overrides, nil
}
