package domain

import (
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
)

// PaymentMethodType is how a consultant gets paid.
type PaymentMethodType string

const (
	MethodACH   PaymentMethodType = "ACH"
	MethodWire  PaymentMethodType = "WIRE"
	MethodCheck PaymentMethodType = "CHECK"
)

// IsValid reports whether the method type is known.
func (t PaymentMethodType) IsValid() bool {
	return t == MethodACH || t == MethodWire || t == MethodCheck
}

// PaymentMethodStatus is the verification state of a payment method.
type PaymentMethodStatus string

const (
	MethodPending  PaymentMethodStatus = "PENDING"
	MethodVerified PaymentMethodStatus = "VERIFIED"
	MethodInactive PaymentMethodStatus = "INACTIVE"
)

// PaymentMethod holds a consultant's bank details. Account and routing numbers are
// stored encrypted; only the last four digits of the account are kept in clear.
type PaymentMethod struct {
	PaymentMethodID        string              `json:"paymentMethodID"`
	ConsultantID           string              `json:"consultantID"`
	MethodType             PaymentMethodType   `json:"methodType"`
	BankName               string              `json:"bankName,omitempty"`
	AccountNumberEncrypted string              `json:"-"`
	AccountLast4           string              `json:"accountLast4,omitempty"`
	RoutingNumberEncrypted string              `json:"-"`
	Status                 PaymentMethodStatus `json:"status"`
	IsDefault              bool                `json:"isDefault"`
	VerifiedBy             *string             `json:"verifiedBy,omitempty"`
	VerifiedAt             *time.Time          `json:"verifiedAt,omitempty"`
	AuditFields
}

// Verify marks a pending method as verified.
func (m *PaymentMethod) Verify(actorID string, at time.Time) error {
	if m.Status != MethodPending {
		return apperrors.NewRuleError("payment method not pending", "only pending payment methods can be verified, current status is "+string(m.Status))
	}
	verifiedAt := at
	m.Status = MethodVerified
	m.VerifiedBy = &actorID
	m.VerifiedAt = &verifiedAt
	m.Touch(actorID, at)
	return nil
}

// Deactivate retires the method.
func (m *PaymentMethod) Deactivate(actorID string, at time.Time) error {
	if m.Status == MethodInactive {
		return apperrors.NewRuleError("payment method inactive", "payment method is already inactive")
	}
	m.Status = MethodInactive
	m.IsDefault = false
	m.Touch(actorID, at)
	return nil
}

// MakeDefault flags a verified method as the consultant's default.
func (m *PaymentMethod) MakeDefault(actorID string, at time.Time) error {
	if m.Status != MethodVerified {
		return apperrors.NewRuleError("payment method not verified", "only verified payment methods can be the default")
	}
	m.IsDefault = true
	m.Touch(actorID, at)
	return nil
}
