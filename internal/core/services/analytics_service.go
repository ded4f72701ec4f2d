package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

const (
	dashboardKeyConsultant = "dashboard:consultant:"
	dashboardKeyFinance    = "dashboard:finance:global"
)

type analyticsService struct {
	BaseService
	repo  portsrepo.AnalyticsRepositoryFacade
	cache portsrepo.DashboardCache
	ttl   time.Duration
}

// NewAnalyticsService creates the dashboard and rollup service. The cache only ever holds
// derived summaries; a cache failure falls back to the database.
func NewAnalyticsService(
	repo portsrepo.AnalyticsRepositoryFacade,
	cache portsrepo.DashboardCache,
	ttl time.Duration,
	users portsrepo.UserReader,
	opts ...ServiceOption,
) portssvc.AnalyticsSvcFacade {
	return &analyticsService{
		BaseService: newBaseService(users, opts...),
		repo:        repo,
		cache:       cache,
		ttl:         ttl,
	}
}

var _ portssvc.AnalyticsSvcFacade = (*analyticsService)(nil)

func (s *analyticsService) ConsultantDashboard(ctx context.Context, consultantID, actorID string) (*domain.ConsultantDashboard, error) {
	if _, err := s.requireSelfOrFinance(ctx, actorID, consultantID, "view dashboard of", "consultant "+consultantID); err != nil {
		return nil, err
	}
	key := dashboardKeyConsultant + consultantID
	var cached domain.ConsultantDashboard
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	byState, err := s.repo.CommissionTotalsByState(ctx, &consultantID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load commission totals", slog.String("consultant_id", consultantID))
		return nil, err
	}
	now := s.now()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	paidYTD, err := s.repo.PaidTotalSince(ctx, consultantID, yearStart)
	if err != nil {
		return nil, err
	}
	if byState == nil {
		byState = []domain.StateTotal{}
	}
	dashboard := &domain.ConsultantDashboard{
		ConsultantID: consultantID,
		ByState:      byState,
		PaidYTD:      paidYTD,
		GeneratedAt:  now,
	}
	s.writeCache(ctx, key, dashboard)
	return dashboard, nil
}

func (s *analyticsService) FinanceDashboard(ctx context.Context, actorID string) (*domain.FinanceDashboard, error) {
	if _, err := s.requireFinance(ctx, actorID, "view", "finance dashboard"); err != nil {
		return nil, err
	}
	var cached domain.FinanceDashboard
	if s.readCache(ctx, dashboardKeyFinance, &cached) {
		return &cached, nil
	}

	batches, err := s.repo.BatchTotalsByStatus(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load batch totals")
		return nil, err
	}
	pendingCount, pendingTotal, err := s.repo.OpenPaymentTotals(ctx)
	if err != nil {
		return nil, err
	}
	discrepancies, err := s.repo.OpenDiscrepancyCount(ctx)
	if err != nil {
		return nil, err
	}
	if batches == nil {
		batches = []domain.BatchStatusTotal{}
	}
	dashboard := &domain.FinanceDashboard{
		Batches:             batches,
		PendingPayments:     pendingCount,
		PendingPaymentTotal: pendingTotal,
		OpenDiscrepancies:   discrepancies,
		GeneratedAt:         s.now(),
	}
	s.writeCache(ctx, dashboardKeyFinance, dashboard)
	return dashboard, nil
}

// RunDailyRollup snapshots one day's commission activity per consultant and globally, plus
// the day's settlement summary. Snapshots already present for the day are left untouched.
func (s *analyticsService) RunDailyRollup(ctx context.Context, date time.Time) (*domain.RollupResult, error) {
	day := domain.DateOnly(date)
	now := s.now()

	byConsultant, err := s.repo.CommissionStateTotalsForDate(ctx, day)
	if err != nil {
		s.LogError(ctx, err, "Failed to aggregate commissions", slog.Time("date", day))
		return nil, err
	}

	consultants := make([]string, 0, len(byConsultant))
	for id := range byConsultant {
		consultants = append(consultants, id)
	}
	sort.Strings(consultants)

	global := newMetric(day, domain.ScopeGlobal, "", now)
	metrics := make([]domain.CommissionMetric, 0, len(consultants)+1)
	for _, id := range consultants {
		m := newMetric(day, domain.ScopeConsultant, id, now)
		for _, total := range byConsultant[id] {
			m.AddState(total)
			global.AddState(total)
		}
		metrics = append(metrics, m)
	}
	metrics = append(metrics, global)

	created, err := s.repo.InsertCommissionMetrics(ctx, metrics)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.PayoutSummaryForDate(ctx, day)
	if err != nil {
		return nil, err
	}
	summary.SummaryDate = day
	summary.ComputedAt = now
	summaries, err := s.repo.InsertPayoutSummary(ctx, *summary)
	if err != nil {
		return nil, err
	}

	result := &domain.RollupResult{MetricDate: day, MetricsCreated: created, SummariesCreated: summaries}
	s.LogInfo(ctx, "Daily rollup complete",
		slog.String("date", day.Format(time.DateOnly)),
		slog.Int64("metrics_created", created),
		slog.Int64("summaries_created", summaries))
	return result, nil
}

func newMetric(day time.Time, scope domain.MetricScope, scopeID string, at time.Time) domain.CommissionMetric {
	return domain.CommissionMetric{
		MetricDate:     day,
		Scope:          scope,
		ScopeID:        scopeID,
		TotalAmount:    decimal.Zero,
		ApprovedAmount: decimal.Zero,
		PendingAmount:  decimal.Zero,
		RejectedAmount: decimal.Zero,
		PaidAmount:     decimal.Zero,
		ComputedAt:     at,
	}
}

func (s *analyticsService) readCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.GetLogger(ctx).Warn("Dashboard cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if found {
		s.LogDebug(ctx, "Dashboard cache hit", slog.String("key", key))
	}
	return found
}

func (s *analyticsService) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.GetLogger(ctx).Warn("Dashboard cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
