package services

import (
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// cache may be nil, in which case dashboards are always computed. cipher may be nil outside
// production; operations that store sensitive fields then fail.
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	cache portsrepo.DashboardCache,
	cipher portssvc.FieldEncryptor,
	opts ...ServiceOption,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo, opts...)

	// Hierarchy first since commission creation and approval resolve managers through it
	container.Hierarchy = NewHierarchyService(repos.HierarchyRepo, repos.UserRepo, opts...)

	container.Commission = NewCommissionService(
		repos.CommissionRepo,
		container.Hierarchy,
		repos.UserRepo,
		overridePolicyFromConfig(cfg),
		opts...,
	)
	container.Approval = NewApprovalService(repos.CommissionRepo, repos.ApprovalRepo, container.Hierarchy, repos.UserRepo, opts...)
	container.Payout = NewPayoutService(repos.SettlementRepo, repos.CommissionRepo, repos.ApprovalRepo, repos.UserRepo, opts...)
	container.Payment = NewPaymentService(repos.PaymentRepo, repos.SettlementRepo, repos.UserRepo, cipher, opts...)
	container.Tax = NewTaxService(repos.PaymentRepo, repos.SettlementRepo, repos.UserRepo, cipher, opts...)
	container.Analytics = NewAnalyticsService(repos.AnalyticsRepo, cache, cfg.DashboardCacheTTL, repos.UserRepo, opts...)

	return container
}

func overridePolicyFromConfig(cfg *config.Config) OverridePolicy {
	policy := DefaultOverridePolicy()
	if cfg == nil {
		return policy
	}
	if cfg.OverrideMaxLevels > 0 {
		policy.MaxLevels = cfg.OverrideMaxLevels
	}
	for level, rate := range cfg.OverrideRates {
		policy.Rates[level] = rate
	}
	return policy
}
