package services

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
)

// TransitionResult is the updated commission plus the history rows the transition wrote.
type TransitionResult struct {
	Commission domain.Commission
	History    []domain.ApprovalHistoryEntry
	// Cascaded lists overrides auto-approved together with a base commission.
	Cascaded []domain.Commission
}

// ApprovalWorkflowSvc drives the commission state machine.
type ApprovalWorkflowSvc interface {
	Submit(ctx context.Context, commissionID, actorID, notes string) (*TransitionResult, error)
	Approve(ctx context.Context, commissionID, actorID, notes string) (*TransitionResult, error)
	Reject(ctx context.Context, commissionID, actorID, reason string) (*TransitionResult, error)
	MarkPaid(ctx context.Context, commissionID, actorID, notes string) (*TransitionResult, error)
}

// ApprovalQuerySvc reads approval state.
type ApprovalQuerySvc interface {
	GetApprovalHistory(ctx context.Context, commissionID string) ([]domain.ApprovalHistoryEntry, error)
	GetCapabilities(ctx context.Context, commissionID, actorID string) (*domain.Capabilities, error)
	ListPendingApprovals(ctx context.Context, approverID string) ([]domain.Commission, error)
}

// ApprovalSvcFacade combines approval services.
type ApprovalSvcFacade interface {
	ApprovalWorkflowSvc
	ApprovalQuerySvc
}
