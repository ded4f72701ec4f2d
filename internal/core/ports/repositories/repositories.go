package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TxManager      TransactionManager
	UserRepo       UserRepositoryFacade
	HierarchyRepo  HierarchyRepositoryWithTx
	CommissionRepo CommissionRepositoryWithTx
	ApprovalRepo   ApprovalRepositoryFacade
	SettlementRepo SettlementRepositoryWithTx
	PaymentRepo    PaymentRepositoryWithTx
	AnalyticsRepo  AnalyticsRepositoryFacade
}
