package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PeriodStatus is the state of an accounting window.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
)

// PayoutPeriod is an accounting window that batches are run in.
type PayoutPeriod struct {
	PeriodID      string       `json:"periodID"`
	Name          string       `json:"name"`
	StartDate     time.Time    `json:"startDate"`
	EndDate       time.Time    `json:"endDate"`
	Status        PeriodStatus `json:"status"`
	IsTaxYearEnd  bool         `json:"isTaxYearEnd"`
	AuditFields
}

// Validate checks the period's dates and name.
func (p PayoutPeriod) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.NewValidationError("name", "is required")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return apperrors.NewValidationError("startDate", "start and end dates are required")
	}
	if DateOnly(p.EndDate).Before(DateOnly(p.StartDate)) {
		return apperrors.NewValidationError("endDate", "must not be before startDate")
	}
	return nil
}

// BatchStatus is a node of the payout batch state machine.
type BatchStatus string

const (
	BatchDraft    BatchStatus = "DRAFT"
	BatchLocked   BatchStatus = "LOCKED"
	BatchReleased BatchStatus = "RELEASED"
	BatchVoid     BatchStatus = "VOID"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchDraft:    {BatchLocked, BatchVoid},
	BatchLocked:   {BatchReleased, BatchVoid},
	BatchReleased: {},
	BatchVoid:     {},
}

// CanTransitionTo reports whether the batch state machine allows s -> target.
func (s BatchStatus) CanTransitionTo(target BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s BatchStatus) IsTerminal() bool {
	return len(batchTransitions[s]) == 0
}

// PayoutBatch is one payroll run within a period.
type PayoutBatch struct {
	BatchID         string      `json:"batchID"`
	PeriodID        string      `json:"periodID"`
	ReferenceNumber string      `json:"referenceNumber"`
	RunDate         time.Time   `json:"runDate"`
	Status          BatchStatus `json:"status"`
	ReleasedAt      *time.Time  `json:"releasedAt,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	AuditFields
}

// TransitionTo moves the batch to target or returns a state error.
func (b *PayoutBatch) TransitionTo(target BatchStatus, actorID string, at time.Time) error {
	if !b.Status.CanTransitionTo(target) {
		return apperrors.NewStateError("payout batch", b.BatchID, string(b.Status), string(target))
	}
	if target == BatchReleased {
		releasedAt := at
		b.ReleasedAt = &releasedAt
	}
	b.Status = target
	b.Touch(actorID, at)
	return nil
}

// BatchReference builds PAY-{PERIOD-NAME}-{YYYYMMDD-HHMMSS}-{suffix}.
func BatchReference(periodName string, at time.Time, suffix string) string {
	name := strings.ToUpper(strings.Join(strings.Fields(periodName), "-"))
	return fmt.Sprintf("PAY-%s-%s-%s", name, at.UTC().Format("20060102-150405"), strings.ToUpper(suffix))
}

// PayoutStatus is the state of one consultant's payout.
type PayoutStatus string

const (
	PayoutDraft      PayoutStatus = "DRAFT"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutPaid       PayoutStatus = "PAID"
	PayoutError      PayoutStatus = "ERROR"
)

// Payout aggregates one consultant's pay inside a batch.
type Payout struct {
	PayoutID         string          `json:"payoutID"`
	BatchID          string          `json:"batchID"`
	ConsultantID     string          `json:"consultantID"`
	TotalCommission  decimal.Decimal `json:"totalCommission"`
	TotalAdjustment  decimal.Decimal `json:"totalAdjustment"`
	TotalTax         decimal.Decimal `json:"totalTax"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	Status           PayoutStatus    `json:"status"`
	PaymentReference *string         `json:"paymentReference,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	AuditFields
}

// AddCommission accumulates a settled commission into the matching total.
func (p *Payout) AddCommission(c Commission) {
	if c.Type() == CommissionTypeAdjustment {
		p.TotalAdjustment = p.TotalAdjustment.Add(c.CalculatedAmount)
	} else {
		p.TotalCommission = p.TotalCommission.Add(c.CalculatedAmount)
	}
	p.Recalculate()
}

// Recalculate sets net = commission + adjustment - tax.
func (p *Payout) Recalculate() {
	p.NetAmount = p.TotalCommission.Add(p.TotalAdjustment).Sub(p.TotalTax)
}

// PayoutLineItem links exactly one commission to one payout.
type PayoutLineItem struct {
	LineItemID   string          `json:"lineItemID"`
	PayoutID     string          `json:"payoutID"`
	CommissionID string          `json:"commissionID"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// LineItemDescription is the snapshot text stored on a line item.
func LineItemDescription(c Commission) string {
	switch k := c.Kind.(type) {
	case OverrideCommission:
		return fmt.Sprintf("Override L%d %s", k.Level, c.ReferenceNumber)
	case AdjustmentCommission:
		return fmt.Sprintf("Adjustment %s", c.ReferenceNumber)
	default:
		return fmt.Sprintf("Commission %s", c.ReferenceNumber)
	}
}

// PayoutHistoryAction names a batch lifecycle event.
type PayoutHistoryAction string

const (
	PayoutHistoryCreate  PayoutHistoryAction = "CREATE"
	PayoutHistoryLock    PayoutHistoryAction = "LOCK"
	PayoutHistoryRelease PayoutHistoryAction = "RELEASE"
	PayoutHistoryVoid    PayoutHistoryAction = "VOID"
)

// PayoutHistoryEntry is one append-only batch audit row.
type PayoutHistoryEntry struct {
	HistoryID string              `json:"historyID"`
	BatchID   string              `json:"batchID"`
	Action    PayoutHistoryAction `json:"action"`
	ActorID   string              `json:"actorID"`
	Notes     string              `json:"notes,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// GenerationResult summarises one pass over the eligible pool.
type GenerationResult struct {
	PayoutsTouched   int             `json:"payoutsTouched"`
	LineItemsCreated int             `json:"lineItemsCreated"`
	SkippedClaimed   int             `json:"skippedClaimed"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
}
