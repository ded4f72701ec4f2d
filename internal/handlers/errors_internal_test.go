package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.NewValidationError("amount", "must be positive"), http.StatusBadRequest},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", apperrors.NewAuthorizationError("u-1", "approve", "commission c-1", "self approval"), http.StatusForbidden},
		{"wrapped not found", fmt.Errorf("get commission: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"duplicate", apperrors.ErrDuplicate, http.StatusConflict},
		{"state", apperrors.NewStateError("commission", "c-1", "draft", "paid"), http.StatusUnprocessableEntity},
		{"rule", apperrors.NewRuleError("override depth", "too deep"), http.StatusUnprocessableEntity},
		{"app error 4xx", apperrors.NewAppError(http.StatusTooManyRequests, "slow down", nil), http.StatusTooManyRequests},
		{"app error 5xx", apperrors.NewAppError(http.StatusBadGateway, "upstream", nil), http.StatusInternalServerError},
		{"plain", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestOptionalHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?status=approved&limit=7&empty=", nil)

	status := optionalStatus[string](c, "status")
	if assert.NotNil(t, status) {
		assert.Equal(t, "APPROVED", *status)
	}
	assert.Nil(t, optionalQuery(c, "empty"))
	assert.Nil(t, optionalQuery(c, "missing"))

	limit, ok := optionalIntQuery(c, "limit")
	assert.True(t, ok)
	if assert.NotNil(t, limit) {
		assert.Equal(t, 7, *limit)
	}

	d, ok := queryDate(c, "missing")
	assert.True(t, ok)
	assert.Equal(t, 0, d.Hour())
}
