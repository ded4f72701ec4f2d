package mapping

import (
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/models"
)

// The two AuditFields types share a field set, so they convert directly.

func ToModelAuditFields(d domain.AuditFields) models.AuditFields {
	return models.AuditFields(d)
}

// ToDomainAuditFields normalises timestamps to UTC; pgx scans timestamptz in the local zone.
func ToDomainAuditFields(m models.AuditFields) domain.AuditFields {
	a := domain.AuditFields(m)
	a.CreatedAt = a.CreatedAt.UTC()
	a.LastUpdatedAt = a.LastUpdatedAt.UTC()
	return a
}
