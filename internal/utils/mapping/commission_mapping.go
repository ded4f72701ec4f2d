package mapping

import (
	"fmt"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/models"
)

// ToModelCommission flattens a commission and its kind into a table row.
func ToModelCommission(d domain.Commission) models.Commission {
	m := models.Commission{
		CommissionID:     d.CommissionID,
		CommissionType:   string(d.Type()),
		ConsultantID:     d.ConsultantID,
		TransactionDate:  d.TransactionDate,
		SaleAmount:       d.SaleAmount,
		GSTRate:          d.GSTRate,
		CommissionRate:   d.CommissionRate,
		CalculatedAmount: d.CalculatedAmount,
		State:            string(d.State),
		ReferenceNumber:  d.ReferenceNumber,
		ClientName:       d.ClientName,
		Notes:            d.Notes,
		ApprovedBy:       d.ApprovedBy,
		ApprovedAt:       d.ApprovedAt,
		PaidAt:           d.PaidAt,
		RejectionReason:  d.RejectionReason,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
	switch k := d.Kind.(type) {
	case domain.OverrideCommission:
		parentID, managerID, level := k.ParentID, k.ManagerID, k.Level
		m.ParentCommissionID = &parentID
		m.ManagerID = &managerID
		m.OverrideLevel = &level
	case domain.AdjustmentCommission:
		originalID := k.OriginalID
		m.AdjustmentForID = &originalID
		if k.ManagerID != "" {
			managerID := k.ManagerID
			m.ManagerID = &managerID
		}
	}
	return m
}

// ToDomainCommission rebuilds the commission kind from a row. Rows whose nullable columns do
// not match their commission_type are rejected.
func ToDomainCommission(m models.Commission) (domain.Commission, error) {
	kind, err := commissionKind(m)
	if err != nil {
		return domain.Commission{}, err
	}
	return domain.Commission{
		CommissionID:     m.CommissionID,
		Kind:             kind,
		ConsultantID:     m.ConsultantID,
		TransactionDate:  m.TransactionDate,
		SaleAmount:       m.SaleAmount,
		GSTRate:          m.GSTRate,
		CommissionRate:   m.CommissionRate,
		CalculatedAmount: m.CalculatedAmount,
		State:            domain.CommissionState(m.State),
		ReferenceNumber:  m.ReferenceNumber,
		ClientName:       m.ClientName,
		Notes:            m.Notes,
		ApprovedBy:       m.ApprovedBy,
		ApprovedAt:       m.ApprovedAt,
		PaidAt:           m.PaidAt,
		RejectionReason:  m.RejectionReason,
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}, nil
}

func commissionKind(m models.Commission) (domain.CommissionKind, error) {
	switch domain.CommissionType(m.CommissionType) {
	case domain.CommissionTypeBase:
		if m.ParentCommissionID != nil || m.ManagerID != nil || m.OverrideLevel != nil || m.AdjustmentForID != nil {
			return nil, fmt.Errorf("commission %s: base commission carries override or adjustment columns", m.CommissionID)
		}
		return domain.BaseCommission{}, nil
	case domain.CommissionTypeOverride:
		if m.ParentCommissionID == nil || m.ManagerID == nil || m.OverrideLevel == nil || m.AdjustmentForID != nil {
			return nil, fmt.Errorf("commission %s: override commission needs parent, manager and level only", m.CommissionID)
		}
		return domain.OverrideCommission{ParentID: *m.ParentCommissionID, ManagerID: *m.ManagerID, Level: *m.OverrideLevel}, nil
	case domain.CommissionTypeAdjustment:
		if m.AdjustmentForID == nil || m.ParentCommissionID != nil || m.OverrideLevel != nil {
			return nil, fmt.Errorf("commission %s: adjustment commission needs adjustment_for_id only", m.CommissionID)
		}
		k := domain.AdjustmentCommission{OriginalID: *m.AdjustmentForID}
		if m.ManagerID != nil {
			k.ManagerID = *m.ManagerID
		}
		return k, nil
	}
	return nil, fmt.Errorf("commission %s: unknown commission type %q", m.CommissionID, m.CommissionType)
}

// ToDomainCommissionSlice converts rows, failing on the first malformed one.
func ToDomainCommissionSlice(ms []models.Commission) ([]domain.Commission, error) {
	ds := make([]domain.Commission, len(ms))
	for i, m := range ms {
		d, err := ToDomainCommission(m)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}
