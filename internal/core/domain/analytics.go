package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricScope says what a snapshot row aggregates over.
type MetricScope string

const (
	ScopeGlobal     MetricScope = "GLOBAL"
	ScopeConsultant MetricScope = "CONSULTANT"
)

// StateTotal is a count and sum of commissions in one state.
type StateTotal struct {
	State  CommissionState `json:"state"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// CommissionMetric is an append-only daily snapshot of commission activity.
type CommissionMetric struct {
	MetricDate     time.Time       `json:"metricDate"`
	Scope          MetricScope     `json:"scope"`
	ScopeID        string          `json:"scopeID,omitempty"`
	TotalCount     int             `json:"totalCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	ApprovedCount  int             `json:"approvedCount"`
	ApprovedAmount decimal.Decimal `json:"approvedAmount"`
	PendingCount   int             `json:"pendingCount"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
	RejectedCount  int             `json:"rejectedCount"`
	RejectedAmount decimal.Decimal `json:"rejectedAmount"`
	PaidCount      int             `json:"paidCount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	ComputedAt     time.Time       `json:"computedAt"`
}

// AddState folds one state's totals into the metric.
func (m *CommissionMetric) AddState(t StateTotal) {
	m.TotalCount += t.Count
	m.TotalAmount = m.TotalAmount.Add(t.Amount)
	switch t.State {
	case CommissionApproved:
		m.ApprovedCount += t.Count
		m.ApprovedAmount = m.ApprovedAmount.Add(t.Amount)
	case CommissionDraft, CommissionSubmitted:
		m.PendingCount += t.Count
		m.PendingAmount = m.PendingAmount.Add(t.Amount)
	case CommissionRejected:
		m.RejectedCount += t.Count
		m.RejectedAmount = m.RejectedAmount.Add(t.Amount)
	case CommissionPaid:
		m.PaidCount += t.Count
		m.PaidAmount = m.PaidAmount.Add(t.Amount)
	}
}

// BatchStatusTotal is a count of batches and the net payable in one status.
type BatchStatusTotal struct {
	Status     BatchStatus     `json:"status"`
	BatchCount int             `json:"batchCount"`
	NetAmount  decimal.Decimal `json:"netAmount"`
}

// PayoutSummary is an append-only daily snapshot of settlement activity.
type PayoutSummary struct {
	SummaryDate   time.Time       `json:"summaryDate"`
	BatchCount    int             `json:"batchCount"`
	PayoutCount   int             `json:"payoutCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	ComputedAt    time.Time       `json:"computedAt"`
}

// ConsultantDashboard is the consultant-facing summary.
type ConsultantDashboard struct {
	ConsultantID string          `json:"consultantID"`
	ByState      []StateTotal    `json:"byState"`
	PaidYTD      decimal.Decimal `json:"paidYTD"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// FinanceDashboard is the finance-facing summary.
type FinanceDashboard struct {
	Batches             []BatchStatusTotal `json:"batches"`
	PendingPayments     int                `json:"pendingPayments"`
	PendingPaymentTotal decimal.Decimal    `json:"pendingPaymentTotal"`
	OpenDiscrepancies   int                `json:"openDiscrepancies"`
	GeneratedAt         time.Time          `json:"generatedAt"`
}

// RollupResult reports how many snapshot rows a rollup wrote.
type RollupResult struct {
	MetricDate       time.Time `json:"metricDate"`
	MetricsCreated   int64     `json:"metricsCreated"`
	SummariesCreated int64     `json:"summariesCreated"`
}
