package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/handlers"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type UserHandlerTestSuite struct {
	apiSuite
	mockUserService      *MockUserService
	mockHierarchyService *MockHierarchyService
	mockDashboardService *MockDashboardService
}

func (suite *UserHandlerTestSuite) SetupTest() {
	suite.setupRouter()
	suite.mockUserService = new(MockUserService)
	suite.mockHierarchyService = new(MockHierarchyService)
	suite.mockDashboardService = new(MockDashboardService)
	handlers.RegisterUserRoutes(suite.v1, suite.mockUserService)
	handlers.RegisterHierarchyRoutes(suite.v1, suite.mockHierarchyService)
	handlers.RegisterDashboardRoutes(suite.v1, suite.mockDashboardService)
}

func (suite *UserHandlerTestSuite) TestCreateUser_Success() {
	adminID := uuid.NewString()
	req := dto.CreateUserRequest{Username: "jdoe", Name: "Jane Doe", Email: "jane@example.com", Role: domain.RoleConsultant}
	suite.mockUserService.On("CreateUser", mock.Anything, req, adminID).
		Return(&domain.User{UserID: "u-1", Username: "jdoe", Name: "Jane Doe", Role: domain.RoleConsultant, IsActive: true}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/users", req, adminID)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var res dto.UserResponse
	suite.decode(w, &res)
	suite.Equal("u-1", res.UserID)
	suite.Equal(domain.RoleConsultant, res.Role)
	suite.mockUserService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestCreateUser_InvalidRole() {
	w := suite.do(http.MethodPost, "/api/v1/users",
		map[string]string{"username": "jdoe", "name": "Jane", "role": "owner"}, uuid.NewString())

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "role")
	suite.mockUserService.AssertNotCalled(suite.T(), "CreateUser")
}

func (suite *UserHandlerTestSuite) TestCreateUser_NonAdminForbidden() {
	actorID := uuid.NewString()
	suite.mockUserService.On("CreateUser", mock.Anything, mock.Anything, actorID).
		Return(nil, apperrors.NewAuthorizationError(actorID, "create", "user", "admin role required")).Once()

	w := suite.do(http.MethodPost, "/api/v1/users",
		dto.CreateUserRequest{Username: "x", Name: "X", Role: domain.RoleFinance}, actorID)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *UserHandlerTestSuite) TestGetMe() {
	actorID := uuid.NewString()
	suite.mockUserService.On("GetUserByID", mock.Anything, actorID).
		Return(&domain.User{UserID: actorID, Username: "me", Role: domain.RoleFinance, IsActive: true}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/users/me", nil, actorID)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), actorID)
}

func (suite *UserHandlerTestSuite) TestGetUser_NotFound() {
	suite.mockUserService.On("GetUserByID", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound).Once()

	w := suite.do(http.MethodGet, "/api/v1/users/missing", nil, uuid.NewString())
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *UserHandlerTestSuite) TestListUsers_ClampsLimit() {
	suite.mockUserService.On("ListUsers", mock.Anything, 20, 5).
		Return([]domain.User{{UserID: "u-1"}, {UserID: "u-2"}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/users?limit=1000&offset=5", nil, uuid.NewString())

	suite.Equal(http.StatusOK, w.Code)
	var res dto.ListUsersResponse
	suite.decode(w, &res)
	suite.Len(res.Users, 2)
	suite.mockUserService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestDeactivateUser() {
	actorID := uuid.NewString()
	suite.mockUserService.On("DeactivateUser", mock.Anything, "u-1", actorID).Return(nil).Once()
	suite.mockUserService.On("DeactivateUser", mock.Anything, "u-2", actorID).
		Return(errors.New("pool exhausted")).Once()

	w := suite.do(http.MethodDelete, "/api/v1/users/u-1", nil, actorID)
	suite.Equal(http.StatusNoContent, w.Code)
	suite.Empty(w.Body.String())

	w = suite.do(http.MethodDelete, "/api/v1/users/u-2", nil, actorID)
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.NotContains(w.Body.String(), "pool exhausted")
}

func (suite *UserHandlerTestSuite) TestAssignManager_SelfManagementIs400() {
	actorID := uuid.NewString()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.mockHierarchyService.On("AssignManager", mock.Anything, mock.Anything, actorID).
		Return(nil, apperrors.NewValidationError("managerID", "a consultant cannot manage themselves")).Once()

	w := suite.do(http.MethodPost, "/api/v1/hierarchy/lines",
		dto.AssignManagerRequest{ConsultantID: "c-1", ManagerID: "c-1", StartDate: start}, actorID)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *UserHandlerTestSuite) TestAssignManager_Overlap() {
	actorID := uuid.NewString()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.mockHierarchyService.On("AssignManager", mock.Anything,
		dto.AssignManagerRequest{ConsultantID: "c-1", ManagerID: "m-1", StartDate: start}, actorID,
	).Return(nil, apperrors.NewRuleError("reporting line overlap", "c-1 already has an active manager")).Once()

	w := suite.do(http.MethodPost, "/api/v1/hierarchy/lines",
		dto.AssignManagerRequest{ConsultantID: "c-1", ManagerID: "m-1", StartDate: start}, actorID)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.mockHierarchyService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestDeactivateLine_EmptyBody() {
	actorID := uuid.NewString()
	suite.mockHierarchyService.On("DeactivateLine", mock.Anything, "l-1", dto.DeactivateLineRequest{}, actorID).
		Return(&domain.ReportingLine{LineID: "l-1", IsActive: false}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/hierarchy/lines/l-1/deactivate", nil, actorID)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.mockHierarchyService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestGetManager() {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	suite.mockHierarchyService.On("ManagerAt", mock.Anything, nil, "c-1", date).
		Return(&domain.ReportingLine{LineID: "l-1", ConsultantID: "c-1", ManagerID: "m-1", IsActive: true}, nil).Once()
	suite.mockHierarchyService.On("ManagerAt", mock.Anything, nil, "c-2", date).Return(nil, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/hierarchy/consultants/c-1/manager?date=2025-03-15", nil, uuid.NewString())
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"managerID":"m-1"`)

	w = suite.do(http.MethodGet, "/api/v1/hierarchy/consultants/c-2/manager?date=2025-03-15", nil, uuid.NewString())
	suite.Equal(http.StatusNotFound, w.Code)
	suite.mockHierarchyService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestListTeam_BadDate() {
	w := suite.do(http.MethodGet, "/api/v1/hierarchy/managers/m-1/team?date=15/03/2025", nil, uuid.NewString())
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockHierarchyService.AssertNotCalled(suite.T(), "ListTeam")
}

func (suite *UserHandlerTestSuite) TestMyDashboard() {
	actorID := uuid.NewString()
	suite.mockDashboardService.On("ConsultantDashboard", mock.Anything, actorID, actorID).
		Return(&domain.ConsultantDashboard{
			ConsultantID: actorID,
			ByState: []domain.StateTotal{
				{State: domain.CommissionApproved, Count: 2, Amount: decimal.RequireFromString("250.00")},
			},
			PaidYTD: decimal.RequireFromString("1000.00"),
		}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/dashboards/me", nil, actorID)

	suite.Equal(http.StatusOK, w.Code)
	var res domain.ConsultantDashboard
	suite.decode(w, &res)
	suite.Require().Len(res.ByState, 1)
	suite.Equal(2, res.ByState[0].Count)
	suite.True(res.PaidYTD.Equal(decimal.NewFromInt(1000)))
}

func (suite *UserHandlerTestSuite) TestOtherConsultantDashboardForbidden() {
	actorID := uuid.NewString()
	suite.mockDashboardService.On("ConsultantDashboard", mock.Anything, "c-9", actorID).
		Return(nil, apperrors.NewAuthorizationError(actorID, "view", "dashboard c-9", "")).Once()

	w := suite.do(http.MethodGet, "/api/v1/dashboards/consultants/c-9", nil, actorID)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *UserHandlerTestSuite) TestFinanceDashboard() {
	actorID := uuid.NewString()
	suite.mockDashboardService.On("FinanceDashboard", mock.Anything, actorID).
		Return(&domain.FinanceDashboard{PendingPayments: 3, PendingPaymentTotal: decimal.RequireFromString("900.00"), OpenDiscrepancies: 1}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/dashboards/finance", nil, actorID)

	suite.Equal(http.StatusOK, w.Code)
	var res domain.FinanceDashboard
	suite.decode(w, &res)
	suite.Equal(3, res.PendingPayments)
	suite.Equal(1, res.OpenDiscrepancies)
}

func TestUserHandler(t *testing.T) {
	suite.Run(t, new(UserHandlerTestSuite))
}
