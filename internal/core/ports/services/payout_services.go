package services

import (
	"context"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
)

// PeriodSvc manages payout periods.
type PeriodSvc interface {
	CreatePeriod(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*domain.PayoutPeriod, error)
	ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.PayoutPeriod, error)
	ClosePeriod(ctx context.Context, periodID, actorID string) (*domain.PayoutPeriod, error)
}

// SettlementSvc drives the payout batch lifecycle.
type SettlementSvc interface {
	CreateBatchForPeriod(ctx context.Context, req dto.CreateBatchRequest, actorID string) (*domain.PayoutBatch, *domain.GenerationResult, error)
	GenerateDraftPayouts(ctx context.Context, batchID, actorID string) (*domain.GenerationResult, error)
	LockBatch(ctx context.Context, batchID, actorID string) (*domain.PayoutBatch, error)
	ReleaseBatch(ctx context.Context, batchID, actorID string) (*domain.PayoutBatch, error)
	VoidBatch(ctx context.Context, batchID, actorID, reason string) (*domain.PayoutBatch, error)
}

// SettlementQuerySvc reads batches and payouts.
type SettlementQuerySvc interface {
	GetBatch(ctx context.Context, batchID string) (*domain.PayoutBatch, error)
	ListBatches(ctx context.Context, periodID *string, status *domain.BatchStatus) ([]domain.PayoutBatch, error)
	ListPayouts(ctx context.Context, batchID string) ([]domain.Payout, error)
	ListLineItems(ctx context.Context, payoutID string) ([]domain.PayoutLineItem, error)
	GetBatchHistory(ctx context.Context, batchID string) ([]domain.PayoutHistoryEntry, error)
}

// PayoutSvcFacade combines payout services.
type PayoutSvcFacade interface {
	PeriodSvc
	SettlementSvc
	SettlementQuerySvc
}
