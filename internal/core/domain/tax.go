package domain

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Form1099Threshold is the yearly total at which a 1099-NEC is required.
var Form1099Threshold = decimal.NewFromInt(600)

// EntityType is the tax classification declared on a W-9.
type EntityType string

const (
	EntityIndividual  EntityType = "INDIVIDUAL"
	EntityLLC         EntityType = "LLC"
	EntityCCorp       EntityType = "C_CORP"
	EntitySCorp       EntityType = "S_CORP"
	EntityPartnership EntityType = "PARTNERSHIP"
	EntityTrust       EntityType = "TRUST"
)

// IsValid reports whether the entity type is known.
func (e EntityType) IsValid() bool {
	switch e {
	case EntityIndividual, EntityLLC, EntityCCorp, EntitySCorp, EntityPartnership, EntityTrust:
		return true
	}
	return false
}

// Requires1099 reports whether payments to this entity type are 1099-reportable.
// Corporations are exempt.
func (e EntityType) Requires1099() bool {
	return e != EntityCCorp && e != EntitySCorp
}

// W9Status is the review state of a W-9.
type W9Status string

const (
	W9Pending  W9Status = "PENDING"
	W9Approved W9Status = "APPROVED"
	W9Rejected W9Status = "REJECTED"
)

// W9Information is a consultant's taxpayer identification.
type W9Information struct {
	W9ID            string     `json:"w9ID"`
	ConsultantID    string     `json:"consultantID"`
	LegalName       string     `json:"legalName"`
	BusinessName    string     `json:"businessName,omitempty"`
	EntityType      EntityType `json:"entityType"`
	TINEncrypted    string     `json:"-"`
	TINLast4        string     `json:"tinLast4"`
	AddressLine1    string     `json:"addressLine1"`
	AddressLine2    string     `json:"addressLine2,omitempty"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zipCode"`
	Status          W9Status   `json:"status"`
	ReviewedBy      *string    `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	AuditFields
}

// Review approves or rejects a pending W-9.
func (w *W9Information) Review(approve bool, reason, actorID string, at time.Time) error {
	target := W9Approved
	if !approve {
		target = W9Rejected
	}
	if w.Status != W9Pending {
		return apperrors.NewStateError("w9", w.W9ID, string(w.Status), string(target))
	}
	if !approve && reason == "" {
		return apperrors.NewValidationError("reason", "is required to reject a W-9")
	}
	reviewedAt := at
	w.Status = target
	w.ReviewedBy = &actorID
	w.ReviewedAt = &reviewedAt
	if approve {
		w.RejectionReason = nil
	} else {
		w.RejectionReason = &reason
	}
	w.Touch(actorID, at)
	return nil
}

// TaxDocumentType names a tax form.
type TaxDocumentType string

const TaxDocument1099NEC TaxDocumentType = "1099-NEC"

// TaxDocumentStatus tracks delivery and filing.
type TaxDocumentStatus string

const (
	TaxDocumentGenerated TaxDocumentStatus = "GENERATED"
	TaxDocumentSent      TaxDocumentStatus = "SENT"
	TaxDocumentFiled     TaxDocumentStatus = "FILED"
)

var taxDocumentTransitions = map[TaxDocumentStatus]TaxDocumentStatus{
	TaxDocumentGenerated: TaxDocumentSent,
	TaxDocumentSent:      TaxDocumentFiled,
}

// TaxDocument is a generated year-end tax form.
type TaxDocument struct {
	DocumentID   string            `json:"documentID"`
	ConsultantID string            `json:"consultantID"`
	TaxYear      int               `json:"taxYear"`
	DocumentType TaxDocumentType   `json:"documentType"`
	TotalAmount  decimal.Decimal   `json:"totalAmount"`
	Status       TaxDocumentStatus `json:"status"`
	FileHash     string            `json:"fileHash"`
	GeneratedBy  string            `json:"generatedBy"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	SentAt       *time.Time        `json:"sentAt,omitempty"`
	FiledAt      *time.Time        `json:"filedAt,omitempty"`
}

// Advance moves the document to target, which must be the next step.
func (d *TaxDocument) Advance(target TaxDocumentStatus, at time.Time) error {
	if next, ok := taxDocumentTransitions[d.Status]; !ok || next != target {
		return apperrors.NewStateError("tax document", d.DocumentID, string(d.Status), string(target))
	}
	stamp := at
	switch target {
	case TaxDocumentSent:
		d.SentAt = &stamp
	case TaxDocumentFiled:
		d.FiledAt = &stamp
	}
	d.Status = target
	return nil
}
