package dto

import "github.com/SscSPs/onesuite_backend/internal/core/domain"

// SubmitW9Request is a consultant's W-9. ConsultantID defaults to the caller.
type SubmitW9Request struct {
	ConsultantID string            `json:"consultantID"`
	LegalName    string            `json:"legalName" binding:"required"`
	BusinessName string            `json:"businessName"`
	EntityType   domain.EntityType `json:"entityType" binding:"required,oneof=INDIVIDUAL LLC C_CORP S_CORP PARTNERSHIP TRUST"`
	TIN          string            `json:"tin" binding:"required,numeric,len=9"`
	AddressLine1 string            `json:"addressLine1" binding:"required"`
	AddressLine2 string            `json:"addressLine2"`
	City         string            `json:"city" binding:"required"`
	State        string            `json:"state" binding:"required,len=2"`
	ZipCode      string            `json:"zipCode" binding:"required"`
}

// RejectW9Request requires a reason.
type RejectW9Request struct {
	Reason string `json:"reason" binding:"required"`
}

// Generate1099Request selects the consultant and tax year.
type Generate1099Request struct {
	ConsultantID string `json:"consultantID" binding:"required"`
	TaxYear      int    `json:"taxYear" binding:"required,min=2000,max=2100"`
}

// ListTaxDocumentsParams filters tax document listings.
type ListTaxDocumentsParams struct {
	ConsultantID string `form:"consultantID"`
	TaxYear      int    `form:"taxYear"`
}
