package domain

import "time"

// ApprovalAction names the trigger recorded in the approval history.
type ApprovalAction string

const (
	ApprovalActionSubmit  ApprovalAction = "SUBMIT"
	ApprovalActionApprove ApprovalAction = "APPROVE"
	ApprovalActionReject  ApprovalAction = "REJECT"
	ApprovalActionPaid    ApprovalAction = "PAID"
)

// ActionForState maps a target state to the history action that reaches it.
func ActionForState(target CommissionState) ApprovalAction {
	switch target {
	case CommissionSubmitted:
		return ApprovalActionSubmit
	case CommissionApproved:
		return ApprovalActionApprove
	case CommissionRejected:
		return ApprovalActionReject
	case CommissionPaid:
		return ApprovalActionPaid
	}
	return ""
}

// CommissionApproval captures who is expected to approve a commission. It is created on
// first submission and not moved by later hierarchy changes.
type CommissionApproval struct {
	ApprovalID         string    `json:"approvalID"`
	CommissionID       string    `json:"commissionID"`
	AssignedApproverID *string   `json:"assignedApproverID,omitempty"`
	ApproverRole       string    `json:"approverRole,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// IsAssignedTo reports whether the record names userID as approver.
func (a *CommissionApproval) IsAssignedTo(userID string) bool {
	return a != nil && a.AssignedApproverID != nil && *a.AssignedApproverID == userID
}

// ApprovalHistoryEntry is one append-only audit row.
type ApprovalHistoryEntry struct {
	HistoryID    string          `json:"historyID"`
	ApprovalID   string          `json:"approvalID"`
	CommissionID string          `json:"commissionID"`
	Action       ApprovalAction  `json:"action"`
	ActorID      string          `json:"actorID"`
	FromState    CommissionState `json:"fromState"`
	ToState      CommissionState `json:"toState"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Capabilities is the outcome of a single authorization evaluation for a commission.
type Capabilities struct {
	CanApprove  bool `json:"canApprove"`
	CanReject   bool `json:"canReject"`
	CanMarkPaid bool `json:"canMarkPaid"`
}

// ApprovalContext is everything the capability check looks at.
type ApprovalContext struct {
	Actor              User
	Commission         Commission
	Approval           *CommissionApproval
	IsHierarchyManager bool
}

// EvaluateCapabilities decides what an actor may do with a commission.
// Approve and reject require the actor to be an admin, the consultant's current manager,
// the override's manager or the assigned approver, and never the consultant. Mark paid is
// reserved to admin and finance.
func EvaluateCapabilities(ac ApprovalContext) Capabilities {
	actorID := ac.Actor.UserID
	canDecide := false
	if ac.Actor.IsActive && actorID != ac.Commission.ConsultantID {
		managerID, hasManager := ac.Commission.ManagerID()
		canDecide = ac.Actor.IsAdmin() ||
			ac.IsHierarchyManager ||
			(hasManager && managerID == actorID) ||
			ac.Approval.IsAssignedTo(actorID)
	}
	return Capabilities{
		CanApprove:  canDecide,
		CanReject:   canDecide,
		CanMarkPaid: ac.Actor.IsActive && ac.Actor.CanOperateFinance(),
	}
}
