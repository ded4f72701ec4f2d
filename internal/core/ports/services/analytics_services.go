package services

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
)

// DashboardSvc serves cached dashboard summaries.
type DashboardSvc interface {
	ConsultantDashboard(ctx context.Context, consultantID, actorID string) (*domain.ConsultantDashboard, error)
	FinanceDashboard(ctx context.Context, actorID string) (*domain.FinanceDashboard, error)
}

// RollupSvc materialises append-only daily snapshots.
type RollupSvc interface {
	RunDailyRollup(ctx context.Context, date time.Time) (*domain.RollupResult, error)
}

// AnalyticsSvcFacade combines analytics services.
type AnalyticsSvcFacade interface {
	DashboardSvc
	RollupSvc
}
