package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission is the flat commissions table row. The kind-specific columns are nullable and
// only the combination allowed by commission_type may be set.
type Commission struct {
	CommissionID       string          `db:"commission_id"`
	CommissionType     string          `db:"commission_type"`
	ConsultantID       string          `db:"consultant_id"`
	ParentCommissionID *string         `db:"parent_commission_id"`
	ManagerID          *string         `db:"manager_id"`
	OverrideLevel      *int            `db:"override_level"`
	AdjustmentForID    *string         `db:"adjustment_for_id"`
	TransactionDate    time.Time       `db:"transaction_date"`
	SaleAmount         decimal.Decimal `db:"sale_amount"`
	GSTRate            decimal.Decimal `db:"gst_rate"`
	CommissionRate     decimal.Decimal `db:"commission_rate"`
	CalculatedAmount   decimal.Decimal `db:"calculated_amount"`
	State              string          `db:"state"`
	ReferenceNumber    string          `db:"reference_number"`
	ClientName         string          `db:"client_name"`
	Notes              string          `db:"notes"`
	ApprovedBy         *string         `db:"approved_by"`
	ApprovedAt         *time.Time      `db:"approved_at"`
	PaidAt             *time.Time      `db:"paid_at"`
	RejectionReason    *string         `db:"rejection_reason"`
	AuditFields
}
