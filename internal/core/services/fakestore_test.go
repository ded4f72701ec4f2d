package services_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeTx stands in for a pgx transaction. The embedded interface is nil; the store never
// calls through it.
type fakeTx struct {
	pgx.Tx
}

type memData struct {
	users           map[string]domain.User
	lines           map[string]domain.ReportingLine
	commissions     map[string]domain.Commission
	approvals       map[string]domain.CommissionApproval // by commission ID
	history         []domain.ApprovalHistoryEntry
	periods         map[string]domain.PayoutPeriod
	batches         map[string]domain.PayoutBatch
	payouts         map[string]domain.Payout
	lineItems       map[string]domain.PayoutLineItem // by commission ID
	payoutHistory   []domain.PayoutHistoryEntry
	transactions    map[string]domain.PaymentTransaction
	reconciliations map[string]domain.PaymentReconciliation
	audit           []domain.PaymentAuditEntry
	methods         map[string]domain.PaymentMethod
	w9s             map[string]domain.W9Information // by consultant ID
	taxDocs         map[string]domain.TaxDocument
	metrics         []domain.CommissionMetric
	summaries       []domain.PayoutSummary
}

func newMemData() memData {
	return memData{
		users:           map[string]domain.User{},
		lines:           map[string]domain.ReportingLine{},
		commissions:     map[string]domain.Commission{},
		approvals:       map[string]domain.CommissionApproval{},
		periods:         map[string]domain.PayoutPeriod{},
		batches:         map[string]domain.PayoutBatch{},
		payouts:         map[string]domain.Payout{},
		lineItems:       map[string]domain.PayoutLineItem{},
		transactions:    map[string]domain.PaymentTransaction{},
		reconciliations: map[string]domain.PaymentReconciliation{},
		methods:         map[string]domain.PaymentMethod{},
		w9s:             map[string]domain.W9Information{},
		taxDocs:         map[string]domain.TaxDocument{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d memData) clone() memData {
	return memData{
		users:           cloneMap(d.users),
		lines:           cloneMap(d.lines),
		commissions:     cloneMap(d.commissions),
		approvals:       cloneMap(d.approvals),
		history:         append([]domain.ApprovalHistoryEntry(nil), d.history...),
		periods:         cloneMap(d.periods),
		batches:         cloneMap(d.batches),
		payouts:         cloneMap(d.payouts),
		lineItems:       cloneMap(d.lineItems),
		payoutHistory:   append([]domain.PayoutHistoryEntry(nil), d.payoutHistory...),
		transactions:    cloneMap(d.transactions),
		reconciliations: cloneMap(d.reconciliations),
		audit:           append([]domain.PaymentAuditEntry(nil), d.audit...),
		methods:         cloneMap(d.methods),
		w9s:             cloneMap(d.w9s),
		taxDocs:         cloneMap(d.taxDocs),
		metrics:         append([]domain.CommissionMetric(nil), d.metrics...),
		summaries:       append([]domain.PayoutSummary(nil), d.summaries...),
	}
}

// memStore is an in-memory implementation of every repository port. Begin snapshots the
// data and Rollback restores it unless Commit ran first, so tests observe the same
// all-or-nothing behaviour a database transaction gives.
type memStore struct {
	mu       sync.Mutex
	data     memData
	snapshot *memData
	failures map[string]error
	// rivalClaims are commission IDs another batch claims just before the next InsertLineItems.
	rivalClaims []string
}

func newMemStore() *memStore {
	return &memStore{data: newMemData(), failures: map[string]error{}}
}

var (
	_ portsrepo.UserRepositoryFacade       = (*memStore)(nil)
	_ portsrepo.HierarchyRepositoryWithTx  = (*memStore)(nil)
	_ portsrepo.CommissionRepositoryWithTx = (*memStore)(nil)
	_ portsrepo.ApprovalRepositoryFacade   = (*memStore)(nil)
	_ portsrepo.SettlementRepositoryWithTx = (*memStore)(nil)
	_ portsrepo.PaymentRepositoryWithTx    = (*memStore)(nil)
	_ portsrepo.AnalyticsRepositoryFacade  = (*memStore)(nil)
)

func (m *memStore) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:      m,
		UserRepo:       m,
		HierarchyRepo:  m,
		CommissionRepo: m,
		ApprovalRepo:   m,
		SettlementRepo: m,
		PaymentRepo:    m,
		AnalyticsRepo:  m,
	}
}

// failOn makes the named method return err until cleared.
func (m *memStore) failOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = err
}

func (m *memStore) fail(method string) error {
	return m.failures[method]
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, entity, id)
}

// --- TransactionManager ---

func (m *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Begin"); err != nil {
		return nil, err
	}
	snap := m.data.clone()
	m.snapshot = &snap
	return &fakeTx{}, nil
}

func (m *memStore) Commit(ctx context.Context, tx pgx.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Commit"); err != nil {
		return err
	}
	m.snapshot = nil
	return nil
}

func (m *memStore) Rollback(ctx context.Context, tx pgx.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot != nil {
		m.data = *m.snapshot
		m.snapshot = nil
	}
	return nil
}

// --- Users ---

func (m *memStore) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.data.users[userID]
	if !ok {
		return nil, notFound("user", userID)
	}
	return &u, nil
}

func (m *memStore) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.data.users))
	for _, u := range m.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if offset >= len(users) {
		return []domain.User{}, nil
	}
	end := min(offset+limit, len(users))
	return users[offset:end], nil
}

func (m *memStore) CountActiveUsersByRole(ctx context.Context, role domain.UserRole) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.data.users {
		if u.Role == role && u.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SaveUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.data.users {
		if u.Username == user.Username {
			return apperrors.ErrDuplicate
		}
	}
	m.data.users[user.UserID] = user
	return nil
}

func (m *memStore) UpdateUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data.users[user.UserID]; !ok {
		return notFound("user", user.UserID)
	}
	m.data.users[user.UserID] = user
	return nil
}

// --- Hierarchy ---

func (m *memStore) FindLineAt(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time) (*domain.ReportingLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.ReportingLine
	for _, l := range m.data.lines {
		if l.ConsultantID != consultantID || !l.Covers(date) {
			continue
		}
		if best == nil || l.StartDate.After(best.StartDate) {
			line := l
			best = &line
		}
	}
	if best == nil {
		return nil, notFound("reporting line for", consultantID)
	}
	return best, nil
}

func (m *memStore) IsActiveManagerOf(ctx context.Context, tx pgx.Tx, managerID, consultantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.data.lines {
		if l.IsActive && l.ConsultantID == consultantID && l.ManagerID == managerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindReportingLineByID(ctx context.Context, lineID string) (*domain.ReportingLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.data.lines[lineID]
	if !ok {
		return nil, notFound("reporting line", lineID)
	}
	return &l, nil
}

func (m *memStore) ListTeamAt(ctx context.Context, managerID string, date time.Time) ([]domain.ReportingLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var team []domain.ReportingLine
	for _, l := range m.data.lines {
		if l.ManagerID == managerID && l.Covers(date) {
			team = append(team, l)
		}
	}
	sort.Slice(team, func(i, j int) bool { return team[i].ConsultantID < team[j].ConsultantID })
	return team, nil
}

func (m *memStore) ListLinesForConsultant(ctx context.Context, consultantID string) ([]domain.ReportingLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []domain.ReportingLine
	for _, l := range m.data.lines {
		if l.ConsultantID == consultantID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].StartDate.After(lines[j].StartDate) })
	return lines, nil
}

func (m *memStore) FindActiveLineForUpdate(ctx context.Context, tx pgx.Tx, consultantID string) (*domain.ReportingLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.data.lines {
		if l.IsActive && l.ConsultantID == consultantID {
			return &l, nil
		}
	}
	return nil, notFound("active reporting line for", consultantID)
}

func (m *memStore) FindReportingLineByIDForUpdate(ctx context.Context, tx pgx.Tx, lineID string) (*domain.ReportingLine, error) {
	return m.FindReportingLineByID(ctx, lineID)
}

func (m *memStore) SaveReportingLine(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if line.IsActive {
		for _, l := range m.data.lines {
			if l.IsActive && l.ConsultantID == line.ConsultantID {
				return apperrors.ErrDuplicate
			}
		}
	}
	m.data.lines[line.LineID] = line
	return nil
}

func (m *memStore) EndReportingLine(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.lines[line.LineID] = line
	return nil
}

// --- Commissions ---

func (m *memStore) FindCommissionByID(ctx context.Context, commissionID string) (*domain.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data.commissions[commissionID]
	if !ok {
		return nil, notFound("commission", commissionID)
	}
	return &c, nil
}

func (m *memStore) ListCommissions(ctx context.Context, filter portsrepo.CommissionFilter, limit int, nextToken *string) ([]domain.Commission, *string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Commission
	for _, c := range m.data.commissions {
		if filter.ConsultantID != nil && c.ConsultantID != *filter.ConsultantID {
			continue
		}
		if filter.State != nil && c.State != *filter.State {
			continue
		}
		if filter.CommissionType != nil && c.Type() != *filter.CommissionType {
			continue
		}
		if parent, _ := c.ParentID(); filter.ParentID != nil && parent != *filter.ParentID {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].TransactionDate.Equal(all[j].TransactionDate) {
			return all[i].TransactionDate.After(all[j].TransactionDate)
		}
		return all[i].ReferenceNumber < all[j].ReferenceNumber
	})
	offset := 0
	if nextToken != nil {
		offset, _ = strconv.Atoi(*nextToken)
	}
	if offset >= len(all) {
		return []domain.Commission{}, nil, nil
	}
	end := min(offset+limit, len(all))
	var next *string
	if end < len(all) {
		token := strconv.Itoa(end)
		next = &token
	}
	return all[offset:end], next, nil
}

func (m *memStore) ListOverridesByParent(ctx context.Context, parentID string) ([]domain.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overridesOf(parentID, nil), nil
}

func (m *memStore) overridesOf(parentID string, state *domain.CommissionState) []domain.Commission {
	var out []domain.Commission
	for _, c := range m.data.commissions {
		if p, ok := c.ParentID(); ok && p == parentID && (state == nil || c.State == *state) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverrideLevel() < out[j].OverrideLevel() })
	return out
}

func (m *memStore) ListSubmittedForApprover(ctx context.Context, approverID string) ([]domain.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Commission
	for _, c := range m.data.commissions {
		a, ok := m.data.approvals[c.CommissionID]
		if ok && c.State == domain.CommissionSubmitted && a.IsAssignedTo(approverID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferenceNumber < out[j].ReferenceNumber })
	return out, nil
}

func (m *memStore) SaveCommission(ctx context.Context, tx pgx.Tx, commission domain.Commission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveCommission"); err != nil {
		return err
	}
	for _, c := range m.data.commissions {
		if c.ReferenceNumber == commission.ReferenceNumber {
			return fmt.Errorf("%w: reference %s", apperrors.ErrDuplicate, commission.ReferenceNumber)
		}
	}
	m.data.commissions[commission.CommissionID] = commission
	return nil
}

func (m *memStore) FindCommissionByIDForUpdate(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.Commission, error) {
	return m.FindCommissionByID(ctx, commissionID)
}

func (m *memStore) FindSubmittedOverridesForUpdate(ctx context.Context, tx pgx.Tx, parentID string) ([]domain.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := domain.CommissionSubmitted
	return m.overridesOf(parentID, &state), nil
}

func (m *memStore) UpdateCommissionState(ctx context.Context, tx pgx.Tx, commission domain.Commission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateCommissionState"); err != nil {
		return err
	}
	m.data.commissions[commission.CommissionID] = commission
	return nil
}

func (m *memStore) FindEligibleForUpdate(ctx context.Context, tx pgx.Tx) ([]domain.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Commission
	for _, c := range m.data.commissions {
		if _, claimed := m.data.lineItems[c.CommissionID]; c.State == domain.CommissionApproved && !claimed {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PayeeID() != out[j].PayeeID() {
			return out[i].PayeeID() < out[j].PayeeID()
		}
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ReferenceNumber < out[j].ReferenceNumber
	})
	return out, nil
}

func (m *memStore) FindCommissionsByIDsForUpdate(ctx context.Context, tx pgx.Tx, commissionIDs []string) ([]domain.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Commission
	for _, id := range commissionIDs {
		if c, ok := m.data.commissions[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) MarkCommissionsPaid(ctx context.Context, tx pgx.Tx, commissionIDs []string, actorID string, paidAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range commissionIDs {
		c, ok := m.data.commissions[id]
		if !ok || c.State != domain.CommissionApproved {
			continue
		}
		at := paidAt
		c.State = domain.CommissionPaid
		c.PaidAt = &at
		c.Touch(actorID, paidAt)
		m.data.commissions[id] = c
		n++
	}
	return n, nil
}

// --- Approvals ---

func (m *memStore) FindApprovalByCommissionID(ctx context.Context, tx pgx.Tx, commissionID string) (*domain.CommissionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data.approvals[commissionID]
	if !ok {
		return nil, notFound("approval for", commissionID)
	}
	return &a, nil
}

func (m *memStore) FindApprovalsByCommissionIDs(ctx context.Context, tx pgx.Tx, commissionIDs []string) (map[string]domain.CommissionApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.CommissionApproval)
	for _, id := range commissionIDs {
		if a, ok := m.data.approvals[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (m *memStore) SaveApproval(ctx context.Context, tx pgx.Tx, approval domain.CommissionApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data.approvals[approval.CommissionID]; ok {
		return apperrors.ErrDuplicate
	}
	m.data.approvals[approval.CommissionID] = approval
	return nil
}

func (m *memStore) AppendApprovalHistory(ctx context.Context, tx pgx.Tx, entries ...domain.ApprovalHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendApprovalHistory"); err != nil {
		return err
	}
	m.data.history = append(m.data.history, entries...)
	return nil
}

func (m *memStore) ListApprovalHistory(ctx context.Context, commissionID string) ([]domain.ApprovalHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ApprovalHistoryEntry
	for _, h := range m.data.history {
		if h.CommissionID == commissionID {
			out = append(out, h)
		}
	}
	return out, nil
}

// --- Periods, batches, payouts ---

func (m *memStore) SavePeriod(ctx context.Context, period domain.PayoutPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.periods[period.PeriodID] = period
	return nil
}

func (m *memStore) FindPeriodByID(ctx context.Context, tx pgx.Tx, periodID string) (*domain.PayoutPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data.periods[periodID]
	if !ok {
		return nil, notFound("payout period", periodID)
	}
	return &p, nil
}

func (m *memStore) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.PayoutPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PayoutPeriod
	for _, p := range m.data.periods {
		if status == nil || p.Status == *status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memStore) UpdatePeriod(ctx context.Context, period domain.PayoutPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.periods[period.PeriodID] = period
	return nil
}

func (m *memStore) SaveBatch(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.batches[batch.BatchID] = batch
	return nil
}

func (m *memStore) FindBatchByID(ctx context.Context, batchID string) (*domain.PayoutBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data.batches[batchID]
	if !ok {
		return nil, notFound("payout batch", batchID)
	}
	return &b, nil
}

func (m *memStore) FindBatchByIDForUpdate(ctx context.Context, tx pgx.Tx, batchID string) (*domain.PayoutBatch, error) {
	return m.FindBatchByID(ctx, batchID)
}

func (m *memStore) UpdateBatchStatus(ctx context.Context, tx pgx.Tx, batch domain.PayoutBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.batches[batch.BatchID] = batch
	return nil
}

func (m *memStore) ListBatches(ctx context.Context, periodID *string, status *domain.BatchStatus) ([]domain.PayoutBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PayoutBatch
	for _, b := range m.data.batches {
		if (periodID == nil || b.PeriodID == *periodID) && (status == nil || b.Status == *status) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferenceNumber < out[j].ReferenceNumber })
	return out, nil
}

func (m *memStore) UpsertPayout(ctx context.Context, tx pgx.Tx, payout domain.Payout) (*domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.payouts {
		if p.BatchID == payout.BatchID && p.ConsultantID == payout.ConsultantID {
			return &p, nil
		}
	}
	m.data.payouts[payout.PayoutID] = payout
	return &payout, nil
}

func (m *memStore) UpdatePayoutTotals(ctx context.Context, tx pgx.Tx, payout domain.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.payouts[payout.PayoutID] = payout
	return nil
}

func (m *memStore) payoutsOf(batchID string) []domain.Payout {
	var out []domain.Payout
	for _, p := range m.data.payouts {
		if p.BatchID == batchID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConsultantID < out[j].ConsultantID })
	return out
}

func (m *memStore) ListPayoutsByBatch(ctx context.Context, tx pgx.Tx, batchID string) ([]domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payoutsOf(batchID), nil
}

func (m *memStore) CountPayoutsByBatch(ctx context.Context, tx pgx.Tx, batchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.payoutsOf(batchID) {
		if m.hasLineItems(p.PayoutID) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) hasLineItems(payoutID string) bool {
	for _, item := range m.data.lineItems {
		if item.PayoutID == payoutID {
			return true
		}
	}
	return false
}

func (m *memStore) DeletePayoutIfEmpty(ctx context.Context, tx pgx.Tx, payoutID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data.payouts[payoutID]; !ok || m.hasLineItems(payoutID) {
		return false, nil
	}
	delete(m.data.payouts, payoutID)
	return true, nil
}

func (m *memStore) MarkPayoutsPaid(ctx context.Context, tx pgx.Tx, batchID string, paidAt time.Time, actorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkPayoutsPaid"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range m.payoutsOf(batchID) {
		at := paidAt
		p.Status = domain.PayoutPaid
		p.PaidAt = &at
		p.Touch(actorID, paidAt)
		m.data.payouts[p.PayoutID] = p
		n++
	}
	return n, nil
}

func (m *memStore) StampPayoutPayment(ctx context.Context, tx pgx.Tx, batchID, paymentReference string, paidAt time.Time, actorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.payoutsOf(batchID) {
		ref, at := paymentReference, paidAt
		p.PaymentReference = &ref
		p.PaidAt = &at
		p.Touch(actorID, paidAt)
		m.data.payouts[p.PayoutID] = p
		n++
	}
	return n, nil
}

func (m *memStore) SumNetAmountByBatch(ctx context.Context, tx pgx.Tx, batchID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.payoutsOf(batchID) {
		total = total.Add(p.NetAmount)
	}
	return total, nil
}

func (m *memStore) SumPaidNetForConsultantYear(ctx context.Context, tx pgx.Tx, consultantID string, year int) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.data.payouts {
		if p.ConsultantID == consultantID && p.Status == domain.PayoutPaid && p.PaidAt != nil && p.PaidAt.Year() == year {
			total = total.Add(p.NetAmount)
		}
	}
	return total, nil
}

func (m *memStore) InsertLineItems(ctx context.Context, tx pgx.Tx, items []domain.PayoutLineItem) ([]domain.PayoutLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertLineItems"); err != nil {
		return nil, err
	}
	for _, id := range m.rivalClaims {
		if _, exists := m.data.lineItems[id]; !exists {
			m.data.lineItems[id] = domain.PayoutLineItem{LineItemID: "rival-" + id, PayoutID: "rival-payout", CommissionID: id}
		}
	}
	m.rivalClaims = nil
	var inserted []domain.PayoutLineItem
	for _, item := range items {
		if _, exists := m.data.lineItems[item.CommissionID]; exists {
			continue
		}
		m.data.lineItems[item.CommissionID] = item
		inserted = append(inserted, item)
	}
	return inserted, nil
}

func (m *memStore) lineItemsOfBatch(batchID string) []domain.PayoutLineItem {
	var out []domain.PayoutLineItem
	for _, item := range m.data.lineItems {
		if p, ok := m.data.payouts[item.PayoutID]; ok && p.BatchID == batchID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommissionID < out[j].CommissionID })
	return out
}

func (m *memStore) ListCommissionIDsByBatch(ctx context.Context, tx pgx.Tx, batchID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, item := range m.lineItemsOfBatch(batchID) {
		ids = append(ids, item.CommissionID)
	}
	return ids, nil
}

func (m *memStore) DeleteLineItemsByBatch(ctx context.Context, tx pgx.Tx, batchID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.lineItemsOfBatch(batchID)
	for _, item := range items {
		delete(m.data.lineItems, item.CommissionID)
	}
	return int64(len(items)), nil
}

func (m *memStore) ListLineItemsByPayout(ctx context.Context, payoutID string) ([]domain.PayoutLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PayoutLineItem
	for _, item := range m.data.lineItems {
		if item.PayoutID == payoutID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommissionID < out[j].CommissionID })
	return out, nil
}

func (m *memStore) AppendPayoutHistory(ctx context.Context, tx pgx.Tx, entry domain.PayoutHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.payoutHistory = append(m.data.payoutHistory, entry)
	return nil
}

func (m *memStore) ListPayoutHistory(ctx context.Context, batchID string) ([]domain.PayoutHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PayoutHistoryEntry
	for _, h := range m.data.payoutHistory {
		if h.BatchID == batchID {
			out = append(out, h)
		}
	}
	return out, nil
}

// --- Payments ---

func (m *memStore) SaveTransaction(ctx context.Context, tx pgx.Tx, transaction domain.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.data.transactions {
		if t.BatchID == transaction.BatchID {
			return apperrors.ErrDuplicate
		}
	}
	m.data.transactions[transaction.TransactionID] = transaction
	return nil
}

func (m *memStore) FindTransactionByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data.transactions[transactionID]
	if !ok {
		return nil, notFound("payment transaction", transactionID)
	}
	return &t, nil
}

func (m *memStore) FindTransactionByIDForUpdate(ctx context.Context, tx pgx.Tx, transactionID string) (*domain.PaymentTransaction, error) {
	return m.FindTransactionByID(ctx, transactionID)
}

func (m *memStore) FindTransactionByBatchID(ctx context.Context, tx pgx.Tx, batchID string) (*domain.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.data.transactions {
		if t.BatchID == batchID {
			return &t, nil
		}
	}
	return nil, notFound("payment transaction for batch", batchID)
}

func (m *memStore) UpdateTransaction(ctx context.Context, tx pgx.Tx, transaction domain.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.transactions[transaction.TransactionID] = transaction
	return nil
}

func (m *memStore) ListTransactions(ctx context.Context, status *domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentTransaction
	for _, t := range m.data.transactions {
		if status == nil || t.Status == *status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) CountOpenTransactionsForMethod(ctx context.Context, tx pgx.Tx, paymentMethodID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.data.transactions {
		if t.PaymentMethodID != nil && *t.PaymentMethodID == paymentMethodID && t.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SaveReconciliation(ctx context.Context, tx pgx.Tx, reconciliation domain.PaymentReconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.reconciliations[reconciliation.ReconciliationID] = reconciliation
	return nil
}

func (m *memStore) FindReconciliationByIDForUpdate(ctx context.Context, tx pgx.Tx, reconciliationID string) (*domain.PaymentReconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data.reconciliations[reconciliationID]
	if !ok {
		return nil, notFound("reconciliation", reconciliationID)
	}
	return &r, nil
}

func (m *memStore) UpdateReconciliation(ctx context.Context, tx pgx.Tx, reconciliation domain.PaymentReconciliation) error {
	return m.SaveReconciliation(ctx, tx, reconciliation)
}

func (m *memStore) ListReconciliations(ctx context.Context, status *domain.ReconciliationStatus) ([]domain.PaymentReconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentReconciliation
	for _, r := range m.data.reconciliations {
		if status == nil || r.Status == *status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) AppendPaymentAudit(ctx context.Context, tx pgx.Tx, entry domain.PaymentAuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.audit = append(m.data.audit, entry)
	return nil
}

func (m *memStore) ListPaymentAudit(ctx context.Context, entityType, entityID string) ([]domain.PaymentAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentAuditEntry
	for _, e := range m.data.audit {
		if (entityType == "" || e.EntityType == entityType) && (entityID == "" || e.EntityID == entityID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) SavePaymentMethod(ctx context.Context, tx pgx.Tx, method domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.methods[method.PaymentMethodID] = method
	return nil
}

func (m *memStore) FindPaymentMethodByIDForUpdate(ctx context.Context, tx pgx.Tx, paymentMethodID string) (*domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.data.methods[paymentMethodID]
	if !ok {
		return nil, notFound("payment method", paymentMethodID)
	}
	return &pm, nil
}

func (m *memStore) UpdatePaymentMethod(ctx context.Context, tx pgx.Tx, method domain.PaymentMethod) error {
	return m.SavePaymentMethod(ctx, tx, method)
}

func (m *memStore) ClearDefaultPaymentMethods(ctx context.Context, tx pgx.Tx, consultantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, pm := range m.data.methods {
		if pm.ConsultantID == consultantID && pm.IsDefault {
			pm.IsDefault = false
			m.data.methods[id] = pm
		}
	}
	return nil
}

func (m *memStore) ListPaymentMethods(ctx context.Context, consultantID string) ([]domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentMethod
	for _, pm := range m.data.methods {
		if pm.ConsultantID == consultantID {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentMethodID < out[j].PaymentMethodID })
	return out, nil
}

// --- Tax ---

func (m *memStore) UpsertW9(ctx context.Context, tx pgx.Tx, w9 domain.W9Information) (*domain.W9Information, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data.w9s[w9.ConsultantID]; ok {
		w9.W9ID = existing.W9ID
		w9.CreatedAt = existing.CreatedAt
		w9.CreatedBy = existing.CreatedBy
	}
	m.data.w9s[w9.ConsultantID] = w9
	return &w9, nil
}

func (m *memStore) FindW9ByConsultant(ctx context.Context, tx pgx.Tx, consultantID string) (*domain.W9Information, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.data.w9s[consultantID]
	if !ok {
		return nil, notFound("w9 for", consultantID)
	}
	return &w, nil
}

func (m *memStore) FindW9ByIDForUpdate(ctx context.Context, tx pgx.Tx, w9ID string) (*domain.W9Information, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.data.w9s {
		if w.W9ID == w9ID {
			return &w, nil
		}
	}
	return nil, notFound("w9", w9ID)
}

func (m *memStore) UpdateW9Review(ctx context.Context, tx pgx.Tx, w9 domain.W9Information) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.w9s[w9.ConsultantID] = w9
	return nil
}

func (m *memStore) ListW9ByStatus(ctx context.Context, status domain.W9Status) ([]domain.W9Information, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.W9Information
	for _, w := range m.data.w9s {
		if w.Status == status {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) SaveTaxDocument(ctx context.Context, tx pgx.Tx, doc domain.TaxDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.data.taxDocs {
		if d.ConsultantID == doc.ConsultantID && d.TaxYear == doc.TaxYear && d.DocumentType == doc.DocumentType {
			return apperrors.ErrDuplicate
		}
	}
	m.data.taxDocs[doc.DocumentID] = doc
	return nil
}

func (m *memStore) FindTaxDocumentByIDForUpdate(ctx context.Context, tx pgx.Tx, documentID string) (*domain.TaxDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data.taxDocs[documentID]
	if !ok {
		return nil, notFound("tax document", documentID)
	}
	return &d, nil
}

func (m *memStore) UpdateTaxDocumentStatus(ctx context.Context, tx pgx.Tx, doc domain.TaxDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.taxDocs[doc.DocumentID] = doc
	return nil
}

func (m *memStore) ListTaxDocuments(ctx context.Context, consultantID *string, year *int) ([]domain.TaxDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TaxDocument
	for _, d := range m.data.taxDocs {
		if (consultantID == nil || d.ConsultantID == *consultantID) && (year == nil || d.TaxYear == *year) {
			out = append(out, d)
		}
	}
	return out, nil
}

// --- Analytics ---

func stateTotals(commissions []domain.Commission) []domain.StateTotal {
	byState := map[domain.CommissionState]*domain.StateTotal{}
	var order []domain.CommissionState
	for _, c := range commissions {
		t, ok := byState[c.State]
		if !ok {
			t = &domain.StateTotal{State: c.State, Amount: decimal.Zero}
			byState[c.State] = t
			order = append(order, c.State)
		}
		t.Count++
		t.Amount = t.Amount.Add(c.CalculatedAmount)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]domain.StateTotal, 0, len(order))
	for _, s := range order {
		out = append(out, *byState[s])
	}
	return out
}

func (m *memStore) CommissionTotalsByState(ctx context.Context, consultantID *string) ([]domain.StateTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Commission
	for _, c := range m.data.commissions {
		if consultantID == nil || c.PayeeID() == *consultantID {
			matched = append(matched, c)
		}
	}
	return stateTotals(matched), nil
}

func (m *memStore) PaidTotalSince(ctx context.Context, consultantID string, since time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.data.payouts {
		if p.ConsultantID == consultantID && p.Status == domain.PayoutPaid && p.PaidAt != nil && !p.PaidAt.Before(since) {
			total = total.Add(p.NetAmount)
		}
	}
	return total, nil
}

func (m *memStore) BatchTotalsByStatus(ctx context.Context) ([]domain.BatchStatusTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStatus := map[domain.BatchStatus]*domain.BatchStatusTotal{}
	for _, b := range m.data.batches {
		t, ok := byStatus[b.Status]
		if !ok {
			t = &domain.BatchStatusTotal{Status: b.Status, NetAmount: decimal.Zero}
			byStatus[b.Status] = t
		}
		t.BatchCount++
		for _, p := range m.payoutsOf(b.BatchID) {
			t.NetAmount = t.NetAmount.Add(p.NetAmount)
		}
	}
	out := make([]domain.BatchStatusTotal, 0, len(byStatus))
	for _, t := range byStatus {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (m *memStore) OpenPaymentTotals(ctx context.Context) (int, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, total := 0, decimal.Zero
	for _, t := range m.data.transactions {
		if t.Status.IsOpen() {
			n++
			total = total.Add(t.TotalAmount)
		}
	}
	return n, total, nil
}

func (m *memStore) OpenDiscrepancyCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.data.reconciliations {
		if r.Status == domain.ReconciliationDiscrepancy {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CommissionStateTotalsForDate(ctx context.Context, date time.Time) (map[string][]domain.StateTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byConsultant := map[string][]domain.Commission{}
	for _, c := range m.data.commissions {
		if domain.DateOnly(c.TransactionDate).Equal(domain.DateOnly(date)) {
			byConsultant[c.PayeeID()] = append(byConsultant[c.PayeeID()], c)
		}
	}
	out := make(map[string][]domain.StateTotal, len(byConsultant))
	for id, cs := range byConsultant {
		out[id] = stateTotals(cs)
	}
	return out, nil
}

func (m *memStore) PayoutSummaryForDate(ctx context.Context, date time.Time) (*domain.PayoutSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &domain.PayoutSummary{TotalAmount: decimal.Zero, PaidAmount: decimal.Zero, PendingAmount: decimal.Zero}
	for _, b := range m.data.batches {
		if !domain.DateOnly(b.RunDate).Equal(domain.DateOnly(date)) || b.Status == domain.BatchVoid {
			continue
		}
		summary.BatchCount++
		for _, p := range m.payoutsOf(b.BatchID) {
			summary.PayoutCount++
			summary.TotalAmount = summary.TotalAmount.Add(p.NetAmount)
			if p.Status == domain.PayoutPaid {
				summary.PaidAmount = summary.PaidAmount.Add(p.NetAmount)
			} else {
				summary.PendingAmount = summary.PendingAmount.Add(p.NetAmount)
			}
		}
	}
	return summary, nil
}

func (m *memStore) InsertCommissionMetrics(ctx context.Context, metrics []domain.CommissionMetric) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, metric := range metrics {
		duplicate := false
		for _, existing := range m.data.metrics {
			if existing.MetricDate.Equal(metric.MetricDate) && existing.Scope == metric.Scope && existing.ScopeID == metric.ScopeID {
				duplicate = true
				break
			}
		}
		if !duplicate {
			m.data.metrics = append(m.data.metrics, metric)
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertPayoutSummary(ctx context.Context, summary domain.PayoutSummary) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.summaries {
		if existing.SummaryDate.Equal(summary.SummaryDate) {
			return 0, nil
		}
	}
	m.data.summaries = append(m.data.summaries, summary)
	return 1, nil
}
