package services

import (
	"context"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/jackc/pgx/v5"
)

// HierarchyResolverSvc answers point-in-time hierarchy questions. A non-nil tx makes the
// lookups part of the caller's transaction.
type HierarchyResolverSvc interface {
	// ManagerAt returns the consultant's manager on date, or nil when there was none.
	ManagerAt(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time) (*domain.ReportingLine, error)

	// ResolveOverrideChain walks up from the consultant, at most maxLevels hops.
	ResolveOverrideChain(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time, maxLevels int) ([]domain.OverrideLink, error)

	// IsActiveManagerOf reports whether managerID currently manages consultantID.
	IsActiveManagerOf(ctx context.Context, tx pgx.Tx, managerID, consultantID string) (bool, error)
}

// HierarchyAdminSvc maintains reporting lines.
type HierarchyAdminSvc interface {
	AssignManager(ctx context.Context, req dto.AssignManagerRequest, actorID string) (*domain.ReportingLine, error)
	ChangeManager(ctx context.Context, req dto.ChangeManagerRequest, actorID string) (*domain.ReportingLine, error)
	DeactivateLine(ctx context.Context, lineID string, req dto.DeactivateLineRequest, actorID string) (*domain.ReportingLine, error)
	ListTeam(ctx context.Context, managerID string, date time.Time) ([]domain.ReportingLine, error)
	ListManagerHistory(ctx context.Context, consultantID string) ([]domain.ReportingLine, error)
}

// HierarchySvcFacade combines hierarchy services.
type HierarchySvcFacade interface {
	HierarchyResolverSvc
	HierarchyAdminSvc
}
