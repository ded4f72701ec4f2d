package domain

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// CommissionType is the discriminator stored alongside a commission row.
type CommissionType string

const (
	CommissionTypeBase       CommissionType = "base"
	CommissionTypeOverride   CommissionType = "override"
	CommissionTypeAdjustment CommissionType = "adjustment"
)

// CommissionKind is the variant part of a commission. Only the three types in this
// package implement it, so a base commission cannot carry a manager or a parent.
type CommissionKind interface {
	Type() CommissionType
	isCommissionKind()
}

// BaseCommission is earned directly by the selling consultant.
type BaseCommission struct{}

// OverrideCommission is paid to a manager up the chain for a subordinate's sale.
type OverrideCommission struct {
	ParentID  string `json:"parentCommissionID"`
	ManagerID string `json:"managerID"`
	Level     int    `json:"overrideLevel"`
}

// AdjustmentCommission corrects a commission that has already been paid. ManagerID is
// carried over from an override original so the correction reaches the same payee.
type AdjustmentCommission struct {
	OriginalID string `json:"adjustmentForID"`
	ManagerID  string `json:"managerID,omitempty"`
}

func (BaseCommission) Type() CommissionType       { return CommissionTypeBase }
func (OverrideCommission) Type() CommissionType   { return CommissionTypeOverride }
func (AdjustmentCommission) Type() CommissionType { return CommissionTypeAdjustment }

func (BaseCommission) isCommissionKind()       {}
func (OverrideCommission) isCommissionKind()   {}
func (AdjustmentCommission) isCommissionKind() {}

// CommissionState is a node of the approval state machine.
type CommissionState string

const (
	CommissionDraft     CommissionState = "draft"
	CommissionSubmitted CommissionState = "submitted"
	CommissionApproved  CommissionState = "approved"
	CommissionRejected  CommissionState = "rejected"
	CommissionPaid      CommissionState = "paid"
)

var commissionTransitions = map[CommissionState][]CommissionState{
	CommissionDraft:     {CommissionSubmitted},
	CommissionSubmitted: {CommissionApproved, CommissionRejected},
	CommissionApproved:  {CommissionPaid},
	CommissionRejected:  {CommissionSubmitted},
	CommissionPaid:      {},
}

// IsValid reports whether the state is known.
func (s CommissionState) IsValid() bool {
	_, ok := commissionTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s CommissionState) CanTransitionTo(target CommissionState) bool {
	for _, allowed := range commissionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Commission is the unit of earned compensation.
type Commission struct {
	CommissionID     string          `json:"commissionID"`
	Kind             CommissionKind  `json:"-"`
	ConsultantID     string          `json:"consultantID"`
	TransactionDate  time.Time       `json:"transactionDate"`
	SaleAmount       decimal.Decimal `json:"saleAmount"`
	GSTRate          decimal.Decimal `json:"gstRate"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	CalculatedAmount decimal.Decimal `json:"calculatedAmount"`
	State            CommissionState `json:"state"`
	ReferenceNumber  string          `json:"referenceNumber"`
	ClientName       string          `json:"clientName,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	ApprovedBy       *string         `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	AuditFields
}

// Type returns the commission's discriminator.
func (c Commission) Type() CommissionType {
	if c.Kind == nil {
		return ""
	}
	return c.Kind.Type()
}

// ManagerID returns the denormalized manager. Base commissions never carry one.
func (c Commission) ManagerID() (string, bool) {
	switch k := c.Kind.(type) {
	case OverrideCommission:
		return k.ManagerID, true
	case AdjustmentCommission:
		return k.ManagerID, k.ManagerID != ""
	}
	return "", false
}

// PayeeID is the user the commission is paid to: the manager for overrides and
// manager-carrying adjustments, the consultant otherwise.
func (c Commission) PayeeID() string {
	if managerID, ok := c.ManagerID(); ok {
		return managerID
	}
	return c.ConsultantID
}

// ParentID returns the base commission an override derives from.
func (c Commission) ParentID() (string, bool) {
	if o, ok := c.Kind.(OverrideCommission); ok {
		return o.ParentID, true
	}
	return "", false
}

// AdjustmentForID returns the paid commission an adjustment corrects.
func (c Commission) AdjustmentForID() (string, bool) {
	if a, ok := c.Kind.(AdjustmentCommission); ok {
		return a.OriginalID, true
	}
	return "", false
}

// OverrideLevel returns the hierarchy level of an override, zero otherwise.
func (c Commission) OverrideLevel() int {
	if o, ok := c.Kind.(OverrideCommission); ok {
		return o.Level
	}
	return 0
}

// Validate checks the variant fields and the amounts.
func (c Commission) Validate() error {
	if c.ConsultantID == "" {
		return apperrors.NewValidationError("consultantID", "is required")
	}
	if c.ReferenceNumber == "" {
		return apperrors.NewValidationError("referenceNumber", "is required")
	}
	if !c.State.IsValid() {
		return apperrors.NewValidationError("state", "unknown state "+string(c.State))
	}
	switch k := c.Kind.(type) {
	case BaseCommission:
	case OverrideCommission:
		if k.ParentID == "" {
			return apperrors.NewValidationError("parentCommissionID", "is required for override commissions")
		}
		if k.ManagerID == "" {
			return apperrors.NewValidationError("managerID", "is required for override commissions")
		}
		if k.Level < 1 {
			return apperrors.NewValidationError("overrideLevel", "must be at least 1")
		}
	case AdjustmentCommission:
		if k.OriginalID == "" {
			return apperrors.NewValidationError("adjustmentForID", "is required for adjustment commissions")
		}
		if c.CalculatedAmount.IsZero() {
			return apperrors.NewValidationError("amount", "adjustment amount cannot be zero")
		}
		return nil
	default:
		return apperrors.NewValidationError("commissionType", "is required")
	}
	if !c.SaleAmount.IsPositive() {
		return apperrors.NewValidationError("saleAmount", "must be positive")
	}
	return nil
}

// ApplyTransition moves the commission to target, stamping the fields that belong to the
// new state. The self-approval rule is enforced here so no caller can bypass it.
func (c *Commission) ApplyTransition(target CommissionState, actorID string, at time.Time, reason string) error {
	if !c.State.CanTransitionTo(target) {
		return apperrors.NewStateError("commission", c.CommissionID, string(c.State), string(target))
	}
	switch target {
	case CommissionApproved:
		if actorID == c.ConsultantID {
			return apperrors.NewAuthorizationError(actorID, "approve", "commission "+c.ReferenceNumber, "consultants cannot approve their own commissions")
		}
		approvedAt := at
		c.ApprovedBy = &actorID
		c.ApprovedAt = &approvedAt
	case CommissionRejected:
		r := reason
		c.RejectionReason = &r
	case CommissionSubmitted:
		c.RejectionReason = nil
	case CommissionPaid:
		paidAt := at
		c.PaidAt = &paidAt
	}
	c.State = target
	c.Touch(actorID, at)
	return nil
}

// IsImmutable reports whether the commission has reached its terminal state.
func (c Commission) IsImmutable() bool {
	return c.State == CommissionPaid
}
