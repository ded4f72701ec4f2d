package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestToDomainAuditFields_UTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	created := time.Date(2025, 4, 1, 10, 30, 0, 0, ist)

	a := ToDomainAuditFields(models.AuditFields{
		CreatedAt: created, CreatedBy: "u-1", LastUpdatedAt: created, LastUpdatedBy: "u-2",
	})

	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.True(t, a.CreatedAt.Equal(created))
	assert.Equal(t, 5, a.LastUpdatedAt.Hour())
	assert.Equal(t, "u-2", a.LastUpdatedBy)
	assert.Equal(t, models.AuditFields(a).CreatedBy, ToModelAuditFields(a).CreatedBy)
}
