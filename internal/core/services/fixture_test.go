package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/core/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/platform/config"
	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	adminID      = "admin-1"
	financeID    = "finance-1"
	directorID   = "director-1"
	managerID    = "manager-1"
	consultantID = "consultant-1"
	loneID       = "consultant-2"

	testFieldKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// memCache is a DashboardCache that stores JSON in a map.
type memCache struct {
	mu     sync.Mutex
	values map[string][]byte
	getErr error
	sets   int
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.sets++
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

// storeSuite wires every service over one in-memory store with a fixed clock. The
// hierarchy is consultant-1 -> manager-1 -> director-1; consultant-2 has no manager.
type storeSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	store  *memStore
	cache  *memCache
	cipher *utils.FieldCipher
	svc    *portssvc.ServiceContainer
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	s.store = newMemStore()
	s.cache = newMemCache()

	cipher, err := utils.NewFieldCipher(testFieldKey)
	s.Require().NoError(err)
	s.cipher = cipher

	cfg := &config.Config{DashboardCacheTTL: time.Minute}
	s.svc = services.NewServiceContainer(cfg, s.store.provider(), s.cache, s.cipher, s.clockOption())

	for _, u := range []struct {
		id   string
		role domain.UserRole
	}{
		{adminID, domain.RoleAdmin},
		{financeID, domain.RoleFinance},
		{directorID, domain.RoleDirector},
		{managerID, domain.RoleManager},
		{consultantID, domain.RoleConsultant},
		{loneID, domain.RoleConsultant},
	} {
		s.addUser(u.id, u.role)
	}

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.svc.Hierarchy.AssignManager(s.ctx, dto.AssignManagerRequest{ConsultantID: managerID, ManagerID: directorID, StartDate: jan}, adminID)
	s.Require().NoError(err)
	_, err = s.svc.Hierarchy.AssignManager(s.ctx, dto.AssignManagerRequest{ConsultantID: consultantID, ManagerID: managerID, StartDate: jan}, adminID)
	s.Require().NoError(err)
}

func (s *storeSuite) clockOption() services.ServiceOption {
	return services.WithClock(func() time.Time { return s.now })
}

func (s *storeSuite) addUser(id string, role domain.UserRole) {
	s.store.data.users[id] = domain.User{
		UserID:      id,
		Username:    id,
		Name:        id,
		Role:        role,
		IsActive:    true,
		AuditFields: domain.NewAuditFields(adminID, s.now),
	}
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// createCommission records a 5% sale for the consultant as that consultant.
func (s *storeSuite) createCommission(consultant, reference, sale string) *portssvc.CommissionCreationResult {
	res, err := s.svc.Commission.CreateBaseWithOverrides(s.ctx, dto.CreateCommissionRequest{
		ConsultantID:    consultant,
		TransactionDate: s.now,
		SaleAmount:      money(sale),
		CommissionRate:  money("5.00"),
		ReferenceNumber: reference,
	}, consultant)
	s.Require().NoError(err)
	return res
}

// createApproved creates a commission for consultant-1, submits it with its overrides and
// approves the base as manager-1 so the overrides cascade.
func (s *storeSuite) createApproved(reference, sale string) *portssvc.CommissionCreationResult {
	res := s.createCommission(consultantID, reference, sale)
	_, err := s.svc.Approval.Submit(s.ctx, res.Base.CommissionID, consultantID, "")
	s.Require().NoError(err)
	for _, o := range res.Overrides {
		_, err := s.svc.Approval.Submit(s.ctx, o.CommissionID, consultantID, "")
		s.Require().NoError(err)
	}
	_, err = s.svc.Approval.Approve(s.ctx, res.Base.CommissionID, managerID, "")
	s.Require().NoError(err)
	return res
}

func (s *storeSuite) createPeriod(name string) *domain.PayoutPeriod {
	period, err := s.svc.Payout.CreatePeriod(s.ctx, dto.CreatePeriodRequest{
		Name:      name,
		StartDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
	}, financeID)
	s.Require().NoError(err)
	return period
}

func (s *storeSuite) createBatch(periodID string) (*domain.PayoutBatch, *domain.GenerationResult) {
	batch, result, err := s.svc.Payout.CreateBatchForPeriod(s.ctx, dto.CreateBatchRequest{PeriodID: periodID}, financeID)
	s.Require().NoError(err)
	return batch, result
}

// releasedBatch approves a commission for consultant-1 and runs it through a released batch.
func (s *storeSuite) releasedBatch(reference, sale string) *domain.PayoutBatch {
	s.createApproved(reference, sale)
	period := s.createPeriod("July 2024 " + reference)
	batch, _ := s.createBatch(period.PeriodID)
	_, err := s.svc.Payout.LockBatch(s.ctx, batch.BatchID, financeID)
	s.Require().NoError(err)
	released, err := s.svc.Payout.ReleaseBatch(s.ctx, batch.BatchID, financeID)
	s.Require().NoError(err)
	return released
}

func (s *storeSuite) commission(id string) domain.Commission {
	c, err := s.store.FindCommissionByID(s.ctx, id)
	s.Require().NoError(err)
	return *c
}
