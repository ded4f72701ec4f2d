package services

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
)

// CommissionCreationResult is the outcome of creating a base commission with its overrides.
type CommissionCreationResult struct {
	Base         domain.Commission
	Overrides    []domain.Commission
	TotalCreated int
}

// CommissionWriterSvc creates commissions.
type CommissionWriterSvc interface {
	// CreateBaseWithOverrides creates a base commission and one override per hierarchy level atomically.
	CreateBaseWithOverrides(ctx context.Context, req dto.CreateCommissionRequest, actorID string) (*CommissionCreationResult, error)

	// CreateAdjustment corrects a paid commission with a new draft adjustment.
	CreateAdjustment(ctx context.Context, originalID string, req dto.CreateAdjustmentRequest, actorID string) (*domain.Commission, error)
}

// CommissionReaderSvc reads commissions.
type CommissionReaderSvc interface {
	GetCommission(ctx context.Context, commissionID string) (*domain.Commission, error)
	ListCommissions(ctx context.Context, params dto.ListCommissionsParams) (*dto.ListCommissionsResponse, error)
	ListOverrides(ctx context.Context, baseID string) ([]domain.Commission, error)
}

// CommissionSvcFacade combines commission services.
type CommissionSvcFacade interface {
	CommissionWriterSvc
	CommissionReaderSvc
}
