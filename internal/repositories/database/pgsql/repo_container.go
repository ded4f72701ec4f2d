package pgsql

import (
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:      &BaseRepository{Pool: dbPool},
		UserRepo:       newPgxUserRepository(dbPool),
		HierarchyRepo:  newPgxHierarchyRepository(dbPool),
		CommissionRepo: newPgxCommissionRepository(dbPool),
		ApprovalRepo:   newPgxApprovalRepository(dbPool),
		SettlementRepo: newPgxSettlementRepository(dbPool),
		PaymentRepo:    newPgxPaymentRepository(dbPool),
		AnalyticsRepo:  newPgxAnalyticsRepository(dbPool),
	}
}
