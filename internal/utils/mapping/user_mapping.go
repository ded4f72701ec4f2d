package mapping

import (
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/models"
)

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	return models.User{
		UserID:        d.UserID,
		Username:      d.Username,
		Name:          d.Name,
		Email:         d.Email,
		Role:          string(d.Role),
		IsActive:      d.IsActive,
		AuditFields:   ToModelAuditFields(d.AuditFields),
		DeactivatedAt: d.DeactivatedAt,
	}
}

// ToDomainUser converts a model User to a domain User
func ToDomainUser(m models.User) domain.User {
	return domain.User{
		UserID:        m.UserID,
		Username:      m.Username,
		Name:          m.Name,
		Email:         m.Email,
		Role:          domain.UserRole(m.Role),
		IsActive:      m.IsActive,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
		DeactivatedAt: m.DeactivatedAt,
	}
}

// ToDomainUserSlice converts a slice of model Users to a slice of domain Users
func ToDomainUserSlice(ms []models.User) []domain.User {
	ds := make([]domain.User, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainUser(m)
	}
	return ds
}
