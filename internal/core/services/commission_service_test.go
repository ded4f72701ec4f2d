package services_test

import (
	"testing"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/stretchr/testify/suite"
)

type CommissionServiceTestSuite struct {
	storeSuite
}

func TestCommissionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CommissionServiceTestSuite))
}

func (suite *CommissionServiceTestSuite) TestCreateBaseWithOverrides() {
	res := suite.createCommission(consultantID, "INV-100", "10000.00")

	suite.Equal(3, res.TotalCreated)
	suite.Equal(domain.CommissionTypeBase, res.Base.Type())
	suite.True(res.Base.CalculatedAmount.Equal(money("500.00")))
	suite.Equal(domain.CommissionDraft, res.Base.State)

	suite.Require().Len(res.Overrides, 2)
	l1, l2 := res.Overrides[0], res.Overrides[1]
	suite.Equal("INV-100-OVR-L1", l1.ReferenceNumber)
	suite.Equal(managerID, l1.PayeeID())
	suite.True(l1.CalculatedAmount.Equal(money("200.00")), "level 1 earns 2%%, got %s", l1.CalculatedAmount)
	suite.Equal("INV-100-OVR-L2", l2.ReferenceNumber)
	suite.Equal(directorID, l2.PayeeID())
	suite.True(l2.CalculatedAmount.Equal(money("100.00")))

	parent, ok := l2.ParentID()
	suite.True(ok)
	suite.Equal(res.Base.CommissionID, parent)

	overrides, err := suite.svc.Commission.ListOverrides(suite.ctx, res.Base.CommissionID)
	suite.Require().NoError(err)
	suite.Len(overrides, 2)
}

func (suite *CommissionServiceTestSuite) TestCreateBaseWithOverrides_ExcludesGST() {
	res, err := suite.svc.Commission.CreateBaseWithOverrides(suite.ctx, dto.CreateCommissionRequest{
		ConsultantID:    loneID,
		TransactionDate: suite.now,
		SaleAmount:      money("1100.00"),
		GSTRate:         money("10.00"),
		CommissionRate:  money("5.00"),
		ReferenceNumber: "GST-1",
	}, financeID)

	suite.Require().NoError(err)
	suite.True(res.Base.CalculatedAmount.Equal(money("50.00")), "got %s", res.Base.CalculatedAmount)
	suite.Empty(res.Overrides, "no manager means no overrides")
}

func (suite *CommissionServiceTestSuite) TestCreateBaseWithOverrides_DuplicateReference() {
	suite.createCommission(consultantID, "INV-1", "1000.00")

	_, err := suite.svc.Commission.CreateBaseWithOverrides(suite.ctx, dto.CreateCommissionRequest{
		ConsultantID: consultantID, TransactionDate: suite.now, SaleAmount: money("1000.00"),
		CommissionRate: money("5.00"), ReferenceNumber: "INV-1",
	}, consultantID)

	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.Len(suite.store.data.commissions, 3)
}

func (suite *CommissionServiceTestSuite) TestCreateBaseWithOverrides_OverrideCollisionRollsBackBase() {
	suite.createCommission(loneID, "INV-7-OVR-L1", "1000.00")

	_, err := suite.svc.Commission.CreateBaseWithOverrides(suite.ctx, dto.CreateCommissionRequest{
		ConsultantID: consultantID, TransactionDate: suite.now, SaleAmount: money("1000.00"),
		CommissionRate: money("5.00"), ReferenceNumber: "INV-7",
	}, consultantID)

	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.Len(suite.store.data.commissions, 1, "the base commission must not survive a failed override insert")
}

func (suite *CommissionServiceTestSuite) TestCreateBaseWithOverrides_Validation() {
	tests := []struct {
		name string
		req  dto.CreateCommissionRequest
	}{
		{"zero sale", dto.CreateCommissionRequest{ConsultantID: consultantID, TransactionDate: suite.now, SaleAmount: money("0"), CommissionRate: money("5"), ReferenceNumber: "V-1"}},
		{"rate above 100", dto.CreateCommissionRequest{ConsultantID: consultantID, TransactionDate: suite.now, SaleAmount: money("10"), CommissionRate: money("101"), ReferenceNumber: "V-2"}},
		{"blank reference", dto.CreateCommissionRequest{ConsultantID: consultantID, TransactionDate: suite.now, SaleAmount: money("10"), CommissionRate: money("5"), ReferenceNumber: "  "}},
		{"missing date", dto.CreateCommissionRequest{ConsultantID: consultantID, SaleAmount: money("10"), CommissionRate: money("5"), ReferenceNumber: "V-3"}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.svc.Commission.CreateBaseWithOverrides(suite.ctx, tt.req, consultantID)
			suite.ErrorIs(err, apperrors.ErrValidation)
		})
	}
}

func (suite *CommissionServiceTestSuite) TestCreateBaseWithOverrides_OtherConsultantForbidden() {
	_, err := suite.svc.Commission.CreateBaseWithOverrides(suite.ctx, dto.CreateCommissionRequest{
		ConsultantID: consultantID, TransactionDate: suite.now, SaleAmount: money("1000.00"),
		CommissionRate: money("5.00"), ReferenceNumber: "X-1",
	}, loneID)

	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *CommissionServiceTestSuite) TestCreateAdjustment() {
	res := suite.createCommission(consultantID, "INV-9", "1000.00")
	override := res.Overrides[0]

	_, err := suite.svc.Commission.CreateAdjustment(suite.ctx, override.CommissionID, dto.CreateAdjustmentRequest{Amount: money("-5"), Reason: "rate fix"}, financeID)
	suite.ErrorIs(err, apperrors.ErrBusinessRule, "only paid commissions can be adjusted")

	paid := suite.commission(override.CommissionID)
	paid.State = domain.CommissionPaid
	suite.store.data.commissions[paid.CommissionID] = paid

	adj, err := suite.svc.Commission.CreateAdjustment(suite.ctx, override.CommissionID, dto.CreateAdjustmentRequest{Amount: money("-5.005"), Reason: "rate fix"}, financeID)
	suite.Require().NoError(err)
	suite.Equal(domain.CommissionTypeAdjustment, adj.Type())
	suite.Equal(domain.CommissionDraft, adj.State)
	suite.Equal("INV-9-OVR-L1-ADJ-20240701090000", adj.ReferenceNumber)
	suite.True(adj.CalculatedAmount.Equal(money("-5.01")), "got %s", adj.CalculatedAmount)
	suite.Equal(managerID, adj.PayeeID(), "an override's adjustment is paid to the same manager")
}

func (suite *CommissionServiceTestSuite) TestCreateAdjustment_RequiresFinance() {
	_, err := suite.svc.Commission.CreateAdjustment(suite.ctx, "any", dto.CreateAdjustmentRequest{Amount: money("5"), Reason: "x"}, managerID)
	suite.ErrorIs(err, apperrors.ErrForbidden)

	_, err = suite.svc.Commission.CreateAdjustment(suite.ctx, "any", dto.CreateAdjustmentRequest{Amount: money("0"), Reason: "x"}, financeID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *CommissionServiceTestSuite) TestListCommissions_Paginates() {
	suite.createCommission(consultantID, "P-1", "100.00")
	suite.createCommission(consultantID, "P-2", "100.00")

	page, err := suite.svc.Commission.ListCommissions(suite.ctx, dto.ListCommissionsParams{ConsultantID: consultantID, Type: "base", Limit: 1})
	suite.Require().NoError(err)
	suite.Len(page.Commissions, 1)
	suite.Require().NotNil(page.NextToken)

	next, err := suite.svc.Commission.ListCommissions(suite.ctx, dto.ListCommissionsParams{ConsultantID: consultantID, Type: "base", Limit: 1, NextToken: *page.NextToken})
	suite.Require().NoError(err)
	suite.Len(next.Commissions, 1)
	suite.Nil(next.NextToken)
	suite.NotEqual(page.Commissions[0].CommissionID, next.Commissions[0].CommissionID)

	_, err = suite.svc.Commission.ListCommissions(suite.ctx, dto.ListCommissionsParams{State: "bogus"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}
