package services_test

import (
	"errors"
	"testing"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/core/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/SscSPs/onesuite_backend/internal/platform/config"
	"github.com/stretchr/testify/suite"
)

type TaxServiceTestSuite struct {
	storeSuite
}

func TestTaxServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaxServiceTestSuite))
}

func w9Request(consultant string, entity domain.EntityType) dto.SubmitW9Request {
	return dto.SubmitW9Request{
		ConsultantID: consultant,
		LegalName:    "Jane Consultant",
		EntityType:   entity,
		TIN:          "123456789",
		AddressLine1: "1 Main St",
		City:         "Austin",
		State:        "tx",
		ZipCode:      "73301",
	}
}

func (suite *TaxServiceTestSuite) approvedW9(consultant string, entity domain.EntityType) *domain.W9Information {
	w9, err := suite.svc.Tax.SubmitW9(suite.ctx, w9Request(consultant, entity), consultant)
	suite.Require().NoError(err)
	approved, err := suite.svc.Tax.ApproveW9(suite.ctx, w9.W9ID, financeID)
	suite.Require().NoError(err)
	return approved
}

func (suite *TaxServiceTestSuite) TestSubmitW9() {
	w9, err := suite.svc.Tax.SubmitW9(suite.ctx, w9Request("", domain.EntityIndividual), consultantID)
	suite.Require().NoError(err)

	suite.Equal(consultantID, w9.ConsultantID)
	suite.Equal(domain.W9Pending, w9.Status)
	suite.Equal("6789", w9.TINLast4)
	suite.Equal("TX", w9.State)
	tin, err := suite.cipher.Decrypt(w9.TINEncrypted)
	suite.Require().NoError(err)
	suite.Equal("123456789", tin)

	_, err = suite.svc.Tax.ApproveW9(suite.ctx, w9.W9ID, consultantID)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	approved, err := suite.svc.Tax.ApproveW9(suite.ctx, w9.W9ID, financeID)
	suite.Require().NoError(err)
	suite.Equal(domain.W9Approved, approved.Status)

	resubmitted, err := suite.svc.Tax.SubmitW9(suite.ctx, w9Request(consultantID, domain.EntityLLC), consultantID)
	suite.Require().NoError(err)
	suite.Equal(w9.W9ID, resubmitted.W9ID, "one W-9 per consultant")
	suite.Equal(domain.W9Pending, resubmitted.Status, "resubmission resets the review")
	suite.Equal(domain.EntityLLC, resubmitted.EntityType)

	pending, err := suite.svc.Tax.ListPendingW9(suite.ctx, financeID)
	suite.Require().NoError(err)
	suite.Len(pending, 1)
}

func (suite *TaxServiceTestSuite) TestSubmitW9_Validation() {
	_, err := suite.svc.Tax.SubmitW9(suite.ctx, w9Request(loneID, domain.EntityIndividual), consultantID)
	suite.ErrorIs(err, apperrors.ErrForbidden)

	req := w9Request(consultantID, domain.EntityIndividual)
	req.TIN = "12345"
	_, err = suite.svc.Tax.SubmitW9(suite.ctx, req, consultantID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.svc.Tax.SubmitW9(suite.ctx, w9Request(consultantID, "SOLE"), consultantID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TaxServiceTestSuite) TestRejectW9() {
	w9, err := suite.svc.Tax.SubmitW9(suite.ctx, w9Request(consultantID, domain.EntityIndividual), consultantID)
	suite.Require().NoError(err)

	_, err = suite.svc.Tax.RejectW9(suite.ctx, w9.W9ID, " ", financeID)
	suite.ErrorIs(err, apperrors.ErrValidation)

	rejected, err := suite.svc.Tax.RejectW9(suite.ctx, w9.W9ID, "name mismatch", financeID)
	suite.Require().NoError(err)
	suite.Equal(domain.W9Rejected, rejected.Status)
	suite.Equal("name mismatch", *rejected.RejectionReason)

	_, err = suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, financeID)
	suite.ErrorIs(err, apperrors.ErrBusinessRule)
}

func (suite *TaxServiceTestSuite) TestGenerate1099NEC() {
	suite.releasedBatch("T-1", "20000.00")
	suite.approvedW9(consultantID, domain.EntityIndividual)

	doc, err := suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, financeID)
	suite.Require().NoError(err)

	suite.Equal(domain.TaxDocument1099NEC, doc.DocumentType)
	suite.Equal(domain.TaxDocumentGenerated, doc.Status)
	suite.True(doc.TotalAmount.Equal(money("1000.00")))
	suite.Regexp("^[0-9a-f]{64}$", doc.FileHash)

	_, err = suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, financeID)
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = suite.svc.Tax.MarkTaxDocumentFiled(suite.ctx, doc.DocumentID, financeID)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition, "a document is sent before it is filed")
	sent, err := suite.svc.Tax.MarkTaxDocumentSent(suite.ctx, doc.DocumentID, financeID)
	suite.Require().NoError(err)
	suite.Equal(domain.TaxDocumentSent, sent.Status)
	filed, err := suite.svc.Tax.MarkTaxDocumentFiled(suite.ctx, doc.DocumentID, financeID)
	suite.Require().NoError(err)
	suite.Equal(suite.now, *filed.FiledAt)

	year := 2024
	docs, err := suite.svc.Tax.ListTaxDocuments(suite.ctx, nil, &year)
	suite.Require().NoError(err)
	suite.Len(docs, 1)
}

func (suite *TaxServiceTestSuite) TestGenerate1099NEC_Rules() {
	suite.releasedBatch("T-2", "20000.00")

	_, err := suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, financeID)
	suite.ErrorIs(err, apperrors.ErrBusinessRule, "no W-9 on file")

	w9, err := suite.svc.Tax.SubmitW9(suite.ctx, w9Request(consultantID, domain.EntityIndividual), consultantID)
	suite.Require().NoError(err)
	_, err = suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, financeID)
	suite.ErrorIs(err, apperrors.ErrBusinessRule, "W-9 still pending")
	_, err = suite.svc.Tax.ApproveW9(suite.ctx, w9.W9ID, financeID)
	suite.Require().NoError(err)

	// manager-1 earned 400.00 of overrides in the batch.
	suite.approvedW9(managerID, domain.EntityIndividual)
	_, err = suite.svc.Tax.Generate1099NEC(suite.ctx, managerID, 2024, financeID)
	suite.ErrorIs(err, apperrors.ErrBusinessRule, "below the reporting threshold")

	_, err = suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2025, financeID)
	suite.ErrorIs(err, apperrors.ErrValidation, "future tax year")

	_, err = suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, consultantID)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *TaxServiceTestSuite) TestGenerate1099NEC_CorporationsExempt() {
	suite.releasedBatch("T-3", "20000.00")
	suite.approvedW9(consultantID, domain.EntityCCorp)

	_, err := suite.svc.Tax.Generate1099NEC(suite.ctx, consultantID, 2024, financeID)

	suite.ErrorIs(err, apperrors.ErrBusinessRule)
	suite.Empty(suite.store.data.taxDocs)
}

func (suite *TaxServiceTestSuite) TestSubmitW9_WithoutCipher() {
	svc := services.NewServiceContainer(&config.Config{}, suite.store.provider(), nil, nil, suite.clockOption())

	_, err := svc.Tax.SubmitW9(suite.ctx, w9Request(consultantID, domain.EntityIndividual), consultantID)

	var appErr *apperrors.AppError
	suite.Require().True(errors.As(err, &appErr))
	suite.Equal(500, appErr.Code)
	suite.Empty(suite.store.data.w9s)
}
