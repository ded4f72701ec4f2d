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
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type approvalService struct {
	BaseService
	commissions portsrepo.CommissionRepositoryWithTx
	approvals   portsrepo.ApprovalRepositoryFacade
	hierarchy   portssvc.HierarchyResolverSvc
}

// NewApprovalService creates the commission approval workflow.
func NewApprovalService(
	commissions portsrepo.CommissionRepositoryWithTx,
	approvals portsrepo.ApprovalRepositoryFacade,
	hierarchy portssvc.HierarchyResolverSvc,
	users portsrepo.UserReader,
	opts ...ServiceOption,
) portssvc.ApprovalSvcFacade {
	return &approvalService{
		BaseService: newBaseService(users, opts...),
		commissions: commissions,
		approvals:   approvals,
		hierarchy:   hierarchy,
	}
}

var _ portssvc.ApprovalSvcFacade = (*approvalService)(nil)

// Submit moves a draft or rejected commission to submitted. The approval record is created on
// first submission and keeps its assigned approver afterwards.
func (s *approvalService) Submit(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tx, err := s.commissions.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.commissions.Rollback(ctx, tx)

	c, err := s.commissions.FindCommissionByIDForUpdate(ctx, tx, commissionID)
	if err != nil {
		return nil, err
	}
	if !c.State.CanTransitionTo(domain.CommissionSubmitted) {
		return nil, apperrors.NewStateError("commission", c.CommissionID, string(c.State), string(domain.CommissionSubmitted))
	}
	if actor.UserID != c.ConsultantID && !actor.CanOperateFinance() {
		return nil, apperrors.NewAuthorizationError(actorID, "submit", "commission "+c.ReferenceNumber, "only the consultant, finance or admin may submit")
	}

	approval, err := s.ensureApproval(ctx, tx, *c)
	if err != nil {
		return nil, err
	}

	entry, err := s.transition(ctx, tx, c, approval, domain.CommissionSubmitted, actorID, notes, "")
	if err != nil {
		return nil, err
	}
	if err := s.commissions.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.logTransition(ctx, *c, entry)
	return &portssvc.TransitionResult{Commission: *c, History: []domain.ApprovalHistoryEntry{entry}}, nil
}

// Approve approves a submitted commission. Approving a base commission also approves its
// submitted overrides in the same transaction.
func (s *approvalService) Approve(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tx, err := s.commissions.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.commissions.Rollback(ctx, tx)

	c, approval, err := s.lockForDecision(ctx, tx, commissionID, domain.CommissionApproved)
	if err != nil {
		return nil, err
	}
	caps, err := s.capabilities(ctx, tx, *actor, *c, approval)
	if err != nil {
		return nil, err
	}
	if !caps.CanApprove {
		return nil, apperrors.NewAuthorizationError(actorID, "approve", "commission "+c.ReferenceNumber, "actor is not an approver for this commission")
	}

	if approval == nil {
		if approval, err = s.ensureApproval(ctx, tx, *c); err != nil {
			return nil, err
		}
	}
	entry, err := s.transition(ctx, tx, c, approval, domain.CommissionApproved, actorID, notes, "")
	if err != nil {
		return nil, err
	}

	history := []domain.ApprovalHistoryEntry{entry}
	cascaded, cascadeHistory, err := s.cascadeApproval(ctx, tx, *c, actorID)
	if err != nil {
		return nil, err
	}
	history = append(history, cascadeHistory...)

	if err := s.commissions.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.logTransition(ctx, *c, entry, slog.Int("cascaded", len(cascaded)))
	return &portssvc.TransitionResult{Commission: *c, History: history, Cascaded: cascaded}, nil
}

// cascadeApproval drains a FIFO worklist seeded with the approved commission. Each base pulled
// from the list contributes its submitted overrides; each override's own transition is still
// validated but authorization is inherited from the base approval.
func (s *approvalService) cascadeApproval(ctx context.Context, tx pgx.Tx, root domain.Commission, actorID string) ([]domain.Commission, []domain.ApprovalHistoryEntry, error) {
	var (
		cascaded []domain.Commission
		history  []domain.ApprovalHistoryEntry
	)
	worklist := []domain.Commission{root}
	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]
		if current.Type() != domain.CommissionTypeBase {
			continue
		}

		overrides, err := s.commissions.FindSubmittedOverridesForUpdate(ctx, tx, current.CommissionID)
		if err != nil {
			return nil, nil, err
		}
		if len(overrides) == 0 {
			continue
		}
		ids := make([]string, len(overrides))
		for i, o := range overrides {
			ids[i] = o.CommissionID
		}
		records, err := s.approvals.FindApprovalsByCommissionIDs(ctx, tx, ids)
		if err != nil {
			return nil, nil, err
		}

		note := fmt.Sprintf("Auto-approved via base %s", root.ReferenceNumber)
		for i := range overrides {
			override := overrides[i]
			var approval *domain.CommissionApproval
			if record, ok := records[override.CommissionID]; ok {
				approval = &record
			} else if approval, err = s.ensureApproval(ctx, tx, override); err != nil {
				return nil, nil, err
			}
			entry, err := s.transition(ctx, tx, &override, approval, domain.CommissionApproved, actorID, note, "")
			if err != nil {
				return nil, nil, err
			}
			cascaded = append(cascaded, override)
			history = append(history, entry)
			worklist = append(worklist, override)
		}
	}
	return cascaded, history, nil
}

// Reject rejects a submitted commission. A reason is mandatory.
func (s *approvalService) Reject(ctx context.Context, commissionID, actorID, reason string) (*portssvc.TransitionResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "is required to reject a commission")
	}
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tx, err := s.commissions.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.commissions.Rollback(ctx, tx)

	c, approval, err := s.lockForDecision(ctx, tx, commissionID, domain.CommissionRejected)
	if err != nil {
		return nil, err
	}
	caps, err := s.capabilities(ctx, tx, *actor, *c, approval)
	if err != nil {
		return nil, err
	}
	if !caps.CanReject {
		return nil, apperrors.NewAuthorizationError(actorID, "reject", "commission "+c.ReferenceNumber, "actor is not an approver for this commission")
	}

	if approval == nil {
		if approval, err = s.ensureApproval(ctx, tx, *c); err != nil {
			return nil, err
		}
	}
	entry, err := s.transition(ctx, tx, c, approval, domain.CommissionRejected, actorID, reason, reason)
	if err != nil {
		return nil, err
	}
	if err := s.commissions.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.logTransition(ctx, *c, entry)
	return &portssvc.TransitionResult{Commission: *c, History: []domain.ApprovalHistoryEntry{entry}}, nil
}

// MarkPaid pays a single approved commission directly. Only admin and finance may do this;
// the role check runs before the transition check.
func (s *approvalService) MarkPaid(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tx, err := s.commissions.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.commissions.Rollback(ctx, tx)

	c, err := s.commissions.FindCommissionByIDForUpdate(ctx, tx, commissionID)
	if err != nil {
		return nil, err
	}
	caps := domain.EvaluateCapabilities(domain.ApprovalContext{Actor: *actor, Commission: *c})
	if !caps.CanMarkPaid {
		return nil, apperrors.NewAuthorizationError(actorID, "mark paid", "commission "+c.ReferenceNumber, "finance or admin role required")
	}
	if !c.State.CanTransitionTo(domain.CommissionPaid) {
		return nil, apperrors.NewStateError("commission", c.CommissionID, string(c.State), string(domain.CommissionPaid))
	}

	approval, err := s.ensureApproval(ctx, tx, *c)
	if err != nil {
		return nil, err
	}
	entry, err := s.transition(ctx, tx, c, approval, domain.CommissionPaid, actorID, notes, "")
	if err != nil {
		return nil, err
	}
	if err := s.commissions.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.logTransition(ctx, *c, entry)
	return &portssvc.TransitionResult{Commission: *c, History: []domain.ApprovalHistoryEntry{entry}}, nil
}

func (s *approvalService) GetApprovalHistory(ctx context.Context, commissionID string) ([]domain.ApprovalHistoryEntry, error) {
	if _, err := s.commissions.FindCommissionByID(ctx, commissionID); err != nil {
		return nil, err
	}
	history, err := s.approvals.ListApprovalHistory(ctx, commissionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list approval history", slog.String("commission_id", commissionID))
		return nil, err
	}
	if history == nil {
		return []domain.ApprovalHistoryEntry{}, nil
	}
	return history, nil
}

// GetCapabilities reports what the actor can do with the commission right now, combining the
// actor's rights with the legality of each transition from the current state.
func (s *approvalService) GetCapabilities(ctx context.Context, commissionID, actorID string) (*domain.Capabilities, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	c, err := s.commissions.FindCommissionByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	approval, err := s.findApproval(ctx, nil, commissionID)
	if err != nil {
		return nil, err
	}
	caps, err := s.capabilities(ctx, nil, *actor, *c, approval)
	if err != nil {
		return nil, err
	}
	caps.CanApprove = caps.CanApprove && c.State.CanTransitionTo(domain.CommissionApproved)
	caps.CanReject = caps.CanReject && c.State.CanTransitionTo(domain.CommissionRejected)
	caps.CanMarkPaid = caps.CanMarkPaid && c.State.CanTransitionTo(domain.CommissionPaid)
	return &caps, nil
}

func (s *approvalService) ListPendingApprovals(ctx context.Context, approverID string) ([]domain.Commission, error) {
	pending, err := s.commissions.ListSubmittedForApprover(ctx, approverID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list pending approvals", slog.String("approver_id", approverID))
		return nil, err
	}
	if pending == nil {
		return []domain.Commission{}, nil
	}
	return pending, nil
}

// lockForDecision locks the commission, checks the requested transition is legal and loads
// its approval record.
func (s *approvalService) lockForDecision(ctx context.Context, tx pgx.Tx, commissionID string, target domain.CommissionState) (*domain.Commission, *domain.CommissionApproval, error) {
	c, err := s.commissions.FindCommissionByIDForUpdate(ctx, tx, commissionID)
	if err != nil {
		return nil, nil, err
	}
	if !c.State.CanTransitionTo(target) {
		return nil, nil, apperrors.NewStateError("commission", c.CommissionID, string(c.State), string(target))
	}
	approval, err := s.findApproval(ctx, tx, commissionID)
	if err != nil {
		return nil, nil, err
	}
	return c, approval, nil
}

// capabilities gathers the approval context once and evaluates it.
func (s *approvalService) capabilities(ctx context.Context, tx pgx.Tx, actor domain.User, c domain.Commission, approval *domain.CommissionApproval) (domain.Capabilities, error) {
	isManager, err := s.hierarchy.IsActiveManagerOf(ctx, tx, actor.UserID, c.ConsultantID)
	if err != nil {
		return domain.Capabilities{}, err
	}
	return domain.EvaluateCapabilities(domain.ApprovalContext{
		Actor:              actor,
		Commission:         c,
		Approval:           approval,
		IsHierarchyManager: isManager,
	}), nil
}

func (s *approvalService) findApproval(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.CommissionApproval, error) {
	approval, err := s.approvals.FindApprovalByCommissionID(ctx, tx, commissionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return approval, nil
}

// ensureApproval returns the commission's approval record, creating it when absent. The
// assigned approver is the commission's manager field, falling back to the consultant's
// manager at the time of the call.
func (s *approvalService) ensureApproval(ctx context.Context, tx pgx.Tx, c domain.Commission) (*domain.CommissionApproval, error) {
	existing, err := s.findApproval(ctx, tx, c.CommissionID)
	if err != nil || existing != nil {
		return existing, err
	}

	approval := domain.CommissionApproval{
		ApprovalID:   uuid.NewString(),
		CommissionID: c.CommissionID,
		ApproverRole: string(domain.RoleAdmin),
		CreatedAt:    s.now(),
	}
	if managerID, ok := c.ManagerID(); ok {
		approval.AssignedApproverID = &managerID
		approval.ApproverRole = string(domain.RoleManager)
	} else {
		line, err := s.hierarchy.ManagerAt(ctx, tx, c.ConsultantID, s.now())
		if err != nil {
			return nil, err
		}
		if line != nil {
			managerID := line.ManagerID
			approval.AssignedApproverID = &managerID
			approval.ApproverRole = string(domain.RoleManager)
		}
	}
	if err := s.approvals.SaveApproval(ctx, tx, approval); err != nil {
		return nil, err
	}
	return &approval, nil
}

// transition applies the state change, persists it and appends one history row.
func (s *approvalService) transition(ctx context.Context, tx pgx.Tx, c *domain.Commission, approval *domain.CommissionApproval, target domain.CommissionState, actorID, notes, reason string) (domain.ApprovalHistoryEntry, error) {
	now := s.now()
	from := c.State
	if err := c.ApplyTransition(target, actorID, now, reason); err != nil {
		return domain.ApprovalHistoryEntry{}, err
	}
	if err := s.commissions.UpdateCommissionState(ctx, tx, *c); err != nil {
		s.LogError(ctx, err, "Failed to update commission state", slog.String("commission_id", c.CommissionID))
		return domain.ApprovalHistoryEntry{}, err
	}
	entry := domain.ApprovalHistoryEntry{
		HistoryID:    uuid.NewString(),
		ApprovalID:   approval.ApprovalID,
		CommissionID: c.CommissionID,
		Action:       domain.ActionForState(target),
		ActorID:      actorID,
		FromState:    from,
		ToState:      target,
		Notes:        notes,
		CreatedAt:    now,
	}
	if err := s.approvals.AppendApprovalHistory(ctx, tx, entry); err != nil {
		s.LogError(ctx, err, "Failed to append approval history", slog.String("commission_id", c.CommissionID))
		return domain.ApprovalHistoryEntry{}, err
	}
	return entry, nil
}

func (s *approvalService) logTransition(ctx context.Context, c domain.Commission, entry domain.ApprovalHistoryEntry, extra ...any) {
	args := []any{
		slog.String("commission_id", c.CommissionID),
		slog.String("reference", c.ReferenceNumber),
		slog.String("from_state", string(entry.FromState)),
		slog.String("to_state", string(entry.ToState)),
		slog.String("actor_id", entry.ActorID),
	}
	s.LogInfo(ctx, "Commission transitioned", append(args, extra...)...)
}
