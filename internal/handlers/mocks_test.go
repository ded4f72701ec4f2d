package handlers_test

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// --- Mock UserService ---
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserService) ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *MockUserService) CreateUser(ctx context.Context, req dto.CreateUserRequest, actorID string) (*domain.User, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, actorID string) (*domain.User, error) {
	args := m.Called(ctx, userID, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserService) DeactivateUser(ctx context.Context, userID string, actorID string) error {
	args := m.Called(ctx, userID, actorID)
	return args.Error(0)
}

var _ portssvc.UserSvcFacade = (*MockUserService)(nil)

// --- Mock HierarchyService ---
type MockHierarchyService struct {
	mock.Mock
}

func (m *MockHierarchyService) ManagerAt(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time) (*domain.ReportingLine, error) {
	args := m.Called(ctx, tx, consultantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportingLine), args.Error(1)
}
func (m *MockHierarchyService) ResolveOverrideChain(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time, maxLevels int) ([]domain.OverrideLink, error) {
	args := m.Called(ctx, tx, consultantID, date, maxLevels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OverrideLink), args.Error(1)
}
func (m *MockHierarchyService) IsActiveManagerOf(ctx context.Context, tx pgx.Tx, managerID, consultantID string) (bool, error) {
	args := m.Called(ctx, tx, managerID, consultantID)
	return args.Bool(0), args.Error(1)
}
func (m *MockHierarchyService) AssignManager(ctx context.Context, req dto.AssignManagerRequest, actorID string) (*domain.ReportingLine, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportingLine), args.Error(1)
}
func (m *MockHierarchyService) ChangeManager(ctx context.Context, req dto.ChangeManagerRequest, actorID string) (*domain.ReportingLine, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportingLine), args.Error(1)
}
func (m *MockHierarchyService) DeactivateLine(ctx context.Context, lineID string, req dto.DeactivateLineRequest, actorID string) (*domain.ReportingLine, error) {
	args := m.Called(ctx, lineID, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportingLine), args.Error(1)
}
func (m *MockHierarchyService) ListTeam(ctx context.Context, managerID string, date time.Time) ([]domain.ReportingLine, error) {
	args := m.Called(ctx, managerID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReportingLine), args.Error(1)
}
func (m *MockHierarchyService) ListManagerHistory(ctx context.Context, consultantID string) ([]domain.ReportingLine, error) {
	args := m.Called(ctx, consultantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReportingLine), args.Error(1)
}

var _ portssvc.HierarchySvcFacade = (*MockHierarchyService)(nil)

// --- Mock CommissionService ---
type MockCommissionService struct {
	mock.Mock
}

func (m *MockCommissionService) CreateBaseWithOverrides(ctx context.Context, req dto.CreateCommissionRequest, actorID string) (*portssvc.CommissionCreationResult, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.CommissionCreationResult), args.Error(1)
}
func (m *MockCommissionService) CreateAdjustment(ctx context.Context, originalID string, req dto.CreateAdjustmentRequest, actorID string) (*domain.Commission, error) {
	args := m.Called(ctx, originalID, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commission), args.Error(1)
}
func (m *MockCommissionService) GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error) {
	args := m.Called(ctx, commissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commission), args.Error(1)
}
func (m *MockCommissionService) ListCommissions(ctx context.Context, params dto.ListCommissionsParams) (*dto.ListCommissionsResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListCommissionsResponse), args.Error(1)
}
func (m *MockCommissionService) ListOverrides(ctx context.Context, baseID string) ([]domain.Commission, error) {
	args := m.Called(ctx, baseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commission), args.Error(1)
}

var _ portssvc.CommissionSvcFacade = (*MockCommissionService)(nil)

// --- Mock ApprovalService ---
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Submit(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error) {
	args := m.Called(ctx, commissionID, actorID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.TransitionResult), args.Error(1)
}
func (m *MockApprovalService) Approve(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error) {
	args := m.Called(ctx, commissionID, actorID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.TransitionResult), args.Error(1)
}
func (m *MockApprovalService) Reject(ctx context.Context, commissionID, actorID, reason string) (*portssvc.TransitionResult, error) {
	args := m.Called(ctx, commissionID, actorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.TransitionResult), args.Error(1)
}
func (m *MockApprovalService) MarkPaid(ctx context.Context, commissionID, actorID, notes string) (*portssvc.TransitionResult, error) {
	args := m.Called(ctx, commissionID, actorID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portssvc.TransitionResult), args.Error(1)
}
func (m *MockApprovalService) GetApprovalHistory(ctx context.Context, commissionID string) ([]domain.ApprovalHistoryEntry, error) {
	args := m.Called(ctx, commissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ApprovalHistoryEntry), args.Error(1)
}
func (m *MockApprovalService) GetCapabilities(ctx context.Context, commissionID, actorID string) (*domain.Capabilities, error) {
	args := m.Called(ctx, commissionID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Capabilities), args.Error(1)
}
func (m *MockApprovalService) ListPendingApprovals(ctx context.Context, approverID string) ([]domain.Commission, error) {
	args := m.Called(ctx, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Commission), args.Error(1)
}

var _ portssvc.ApprovalSvcFacade = (*MockApprovalService)(nil)

// --- Mock PayoutService ---
type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*domain.PayoutPeriod, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutPeriod), args.Error(1)
}
func (m *MockPayoutService) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.PayoutPeriod, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutPeriod), args.Error(1)
}
func (m *MockPayoutService) ClosePeriod(ctx context.Context, periodID, actorID string) (*domain.PayoutPeriod, error) {
	args := m.Called(ctx, periodID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutPeriod), args.Error(1)
}
func (m *MockPayoutService) CreateBatchForPeriod(ctx context.Context, req dto.CreateBatchRequest, actorID string) (*domain.PayoutBatch, *domain.GenerationResult, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.PayoutBatch), args.Get(1).(*domain.GenerationResult), args.Error(2)
}
func (m *MockPayoutService) GenerateDraftPayouts(ctx context.Context, batchID, actorID string) (*domain.GenerationResult, error) {
	args := m.Called(ctx, batchID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerationResult), args.Error(1)
}
func (m *MockPayoutService) LockBatch(ctx context.Context, batchID, actorID string) (*domain.PayoutBatch, error) {
	args := m.Called(ctx, batchID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutBatch), args.Error(1)
}
func (m *MockPayoutService) ReleaseBatch(ctx context.Context, batchID, actorID string) (*domain.PayoutBatch, error) {
	args := m.Called(ctx, batchID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutBatch), args.Error(1)
}
func (m *MockPayoutService) VoidBatch(ctx context.Context, batchID, actorID, reason string) (*domain.PayoutBatch, error) {
	args := m.Called(ctx, batchID, actorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutBatch), args.Error(1)
}
func (m *MockPayoutService) GetBatch(ctx context.Context, batchID string) (*domain.PayoutBatch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayoutBatch), args.Error(1)
}
func (m *MockPayoutService) ListBatches(ctx context.Context, periodID *string, status *domain.BatchStatus) ([]domain.PayoutBatch, error) {
	args := m.Called(ctx, periodID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutBatch), args.Error(1)
}
func (m *MockPayoutService) ListPayouts(ctx context.Context, batchID string) ([]domain.Payout, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payout), args.Error(1)
}
func (m *MockPayoutService) ListLineItems(ctx context.Context, payoutID string) ([]domain.PayoutLineItem, error) {
	args := m.Called(ctx, payoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutLineItem), args.Error(1)
}
func (m *MockPayoutService) GetBatchHistory(ctx context.Context, batchID string) ([]domain.PayoutHistoryEntry, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutHistoryEntry), args.Error(1)
}

var _ portssvc.PayoutSvcFacade = (*MockPayoutService)(nil)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) tx(args mock.Arguments) (*domain.PaymentTransaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) method(args mock.Arguments) (*domain.PaymentMethod, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}
func (m *MockPaymentService) InitiatePayment(ctx context.Context, batchID string, req dto.InitiatePaymentRequest, actorID string) (*domain.PaymentTransaction, error) {
	return m.tx(m.Called(ctx, batchID, req, actorID))
}
func (m *MockPaymentService) ConfirmPayment(ctx context.Context, transactionID string, req dto.ConfirmPaymentRequest, actorID string) (*domain.PaymentTransaction, error) {
	return m.tx(m.Called(ctx, transactionID, req, actorID))
}
func (m *MockPaymentService) MarkPaymentFailed(ctx context.Context, transactionID, reason, actorID string) (*domain.PaymentTransaction, error) {
	return m.tx(m.Called(ctx, transactionID, reason, actorID))
}
func (m *MockPaymentService) RetryPayment(ctx context.Context, transactionID, actorID string) (*domain.PaymentTransaction, error) {
	return m.tx(m.Called(ctx, transactionID, actorID))
}
func (m *MockPaymentService) CancelPayment(ctx context.Context, transactionID, actorID string) (*domain.PaymentTransaction, error) {
	return m.tx(m.Called(ctx, transactionID, actorID))
}
func (m *MockPaymentService) GetTransaction(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	return m.tx(m.Called(ctx, transactionID))
}
func (m *MockPaymentService) ListTransactions(ctx context.Context, status *domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) CreateReconciliation(ctx context.Context, batchID string, req dto.CreateReconciliationRequest, actorID string) (*domain.PaymentReconciliation, error) {
	args := m.Called(ctx, batchID, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentReconciliation), args.Error(1)
}
func (m *MockPaymentService) ResolveDiscrepancy(ctx context.Context, reconciliationID, notes, actorID string) (*domain.PaymentReconciliation, error) {
	args := m.Called(ctx, reconciliationID, notes, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentReconciliation), args.Error(1)
}
func (m *MockPaymentService) ListReconciliations(ctx context.Context, status *domain.ReconciliationStatus) ([]domain.PaymentReconciliation, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentReconciliation), args.Error(1)
}
func (m *MockPaymentService) AddPaymentMethod(ctx context.Context, req dto.AddPaymentMethodRequest, actorID string) (*domain.PaymentMethod, error) {
	return m.method(m.Called(ctx, req, actorID))
}
func (m *MockPaymentService) VerifyPaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error) {
	return m.method(m.Called(ctx, paymentMethodID, actorID))
}
func (m *MockPaymentService) SetDefaultPaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error) {
	return m.method(m.Called(ctx, paymentMethodID, actorID))
}
func (m *MockPaymentService) DeactivatePaymentMethod(ctx context.Context, paymentMethodID, actorID string) (*domain.PaymentMethod, error) {
	return m.method(m.Called(ctx, paymentMethodID, actorID))
}
func (m *MockPaymentService) ListPaymentMethods(ctx context.Context, consultantID, actorID string) ([]domain.PaymentMethod, error) {
	args := m.Called(ctx, consultantID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentMethod), args.Error(1)
}
func (m *MockPaymentService) ListAudit(ctx context.Context, entityType, entityID string) ([]domain.PaymentAuditEntry, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentAuditEntry), args.Error(1)
}

var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Mock TaxService ---
type MockTaxService struct {
	mock.Mock
}

func (m *MockTaxService) w9(args mock.Arguments) (*domain.W9Information, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.W9Information), args.Error(1)
}
func (m *MockTaxService) doc(args mock.Arguments) (*domain.TaxDocument, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaxDocument), args.Error(1)
}
func (m *MockTaxService) SubmitW9(ctx context.Context, req dto.SubmitW9Request, actorID string) (*domain.W9Information, error) {
	return m.w9(m.Called(ctx, req, actorID))
}
func (m *MockTaxService) ApproveW9(ctx context.Context, w9ID, actorID string) (*domain.W9Information, error) {
	return m.w9(m.Called(ctx, w9ID, actorID))
}
func (m *MockTaxService) RejectW9(ctx context.Context, w9ID, reason, actorID string) (*domain.W9Information, error) {
	return m.w9(m.Called(ctx, w9ID, reason, actorID))
}
func (m *MockTaxService) GetW9(ctx context.Context, consultantID, actorID string) (*domain.W9Information, error) {
	return m.w9(m.Called(ctx, consultantID, actorID))
}
func (m *MockTaxService) ListPendingW9(ctx context.Context, actorID string) ([]domain.W9Information, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.W9Information), args.Error(1)
}
func (m *MockTaxService) Generate1099NEC(ctx context.Context, consultantID string, taxYear int, actorID string) (*domain.TaxDocument, error) {
	return m.doc(m.Called(ctx, consultantID, taxYear, actorID))
}
func (m *MockTaxService) MarkTaxDocumentSent(ctx context.Context, documentID, actorID string) (*domain.TaxDocument, error) {
	return m.doc(m.Called(ctx, documentID, actorID))
}
func (m *MockTaxService) MarkTaxDocumentFiled(ctx context.Context, documentID, actorID string) (*domain.TaxDocument, error) {
	return m.doc(m.Called(ctx, documentID, actorID))
}
func (m *MockTaxService) ListTaxDocuments(ctx context.Context, consultantID *string, year *int) ([]domain.TaxDocument, error) {
	args := m.Called(ctx, consultantID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TaxDocument), args.Error(1)
}

var _ portssvc.TaxSvcFacade = (*MockTaxService)(nil)

// --- Mock DashboardService ---
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) ConsultantDashboard(ctx context.Context, consultantID, actorID string) (*domain.ConsultantDashboard, error) {
	args := m.Called(ctx, consultantID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsultantDashboard), args.Error(1)
}
func (m *MockDashboardService) FinanceDashboard(ctx context.Context, actorID string) (*domain.FinanceDashboard, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinanceDashboard), args.Error(1)
}

var _ portssvc.DashboardSvc = (*MockDashboardService)(nil)
