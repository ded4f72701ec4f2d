package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/apperrors"
	"github.com/SscSPs/onesuite_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/onesuite_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/onesuite_backend/internal/core/ports/services"
	"github.com/SscSPs/onesuite_backend/internal/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// maxHierarchyDepth bounds upward walks when checking a new line for cycles.
const maxHierarchyDepth = 64

type hierarchyService struct {
	BaseService
	repo portsrepo.HierarchyRepositoryWithTx
}

// NewHierarchyService creates the hierarchy resolver and admin service.
func NewHierarchyService(repo portsrepo.HierarchyRepositoryWithTx, users portsrepo.UserReader, opts ...ServiceOption) portssvc.HierarchySvcFacade {
	return &hierarchyService{
		BaseService: newBaseService(users, opts...),
		repo:        repo,
	}
}

var _ portssvc.HierarchySvcFacade = (*hierarchyService)(nil)

func (s *hierarchyService) ManagerAt(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time) (*domain.ReportingLine, error) {
	line, err := s.repo.FindLineAt(ctx, tx, consultantID, domain.DateOnly(date))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve manager of %s: %w", consultantID, err)
	}
	return line, nil
}

func (s *hierarchyService) ResolveOverrideChain(ctx context.Context, tx pgx.Tx, consultantID string, date time.Time, maxLevels int) ([]domain.OverrideLink, error) {
	chain := make([]domain.OverrideLink, 0, maxLevels)
	visited := map[string]bool{consultantID: true}
	current := consultantID

	for level := 1; level <= maxLevels; level++ {
		line, err := s.ManagerAt(ctx, tx, current, date)
		if err != nil {
			return nil, err
		}
		if line == nil {
			break
		}
		if visited[line.ManagerID] {
			s.GetLogger(ctx).Warn("Cycle detected in reporting hierarchy, truncating override chain",
				slog.String("consultant_id", consultantID),
				slog.String("manager_id", line.ManagerID),
				slog.Int("level", level))
			break
		}
		chain = append(chain, domain.OverrideLink{ManagerID: line.ManagerID, Level: level})
		visited[line.ManagerID] = true
		current = line.ManagerID
	}
	return chain, nil
}

func (s *hierarchyService) IsActiveManagerOf(ctx context.Context, tx pgx.Tx, managerID, consultantID string) (bool, error) {
	return s.repo.IsActiveManagerOf(ctx, tx, managerID, consultantID)
}

func (s *hierarchyService) AssignManager(ctx context.Context, req dto.AssignManagerRequest, actorID string) (*domain.ReportingLine, error) {
	if _, err := s.requireAdmin(ctx, actorID, "assign manager for", "consultant "+req.ConsultantID); err != nil {
		return nil, err
	}
	if err := s.checkParticipants(ctx, req.ConsultantID, req.ManagerID); err != nil {
		return nil, err
	}

	now := s.now()
	line := domain.ReportingLine{
		LineID:       uuid.NewString(),
		ConsultantID: req.ConsultantID,
		ManagerID:    req.ManagerID,
		StartDate:    domain.DateOnly(req.StartDate),
		IsActive:     true,
		AuditFields:  domain.NewAuditFields(actorID, now),
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	existing, err := s.repo.FindActiveLineForUpdate(ctx, tx, req.ConsultantID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: consultant %s already reports to %s, use change manager instead",
			apperrors.ErrDuplicate, req.ConsultantID, existing.ManagerID)
	}
	if err := s.checkNoCycle(ctx, tx, line); err != nil {
		return nil, err
	}
	if err := s.repo.SaveReportingLine(ctx, tx, line); err != nil {
		s.logUnexpected(ctx, err, "Failed to save reporting line", slog.String("consultant_id", line.ConsultantID))
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Manager assigned",
		slog.String("consultant_id", line.ConsultantID),
		slog.String("manager_id", line.ManagerID),
		slog.String("actor_id", actorID))
	return &line, nil
}

// ChangeManager ends the current line the day before the effective date and opens a new one.
func (s *hierarchyService) ChangeManager(ctx context.Context, req dto.ChangeManagerRequest, actorID string) (*domain.ReportingLine, error) {
	if _, err := s.requireAdmin(ctx, actorID, "change manager for", "consultant "+req.ConsultantID); err != nil {
		return nil, err
	}
	if err := s.checkParticipants(ctx, req.ConsultantID, req.NewManagerID); err != nil {
		return nil, err
	}

	now := s.now()
	effective := domain.DateOnly(req.EffectiveDate)
	next := domain.ReportingLine{
		LineID:       uuid.NewString(),
		ConsultantID: req.ConsultantID,
		ManagerID:    req.NewManagerID,
		StartDate:    effective,
		IsActive:     true,
		AuditFields:  domain.NewAuditFields(actorID, now),
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	current, err := s.repo.FindActiveLineForUpdate(ctx, tx, req.ConsultantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: consultant %s has no active manager, use assign manager instead", apperrors.ErrNotFound, req.ConsultantID)
		}
		return nil, err
	}
	if current.ManagerID == req.NewManagerID {
		return nil, apperrors.NewValidationError("newManagerID", "is already the consultant's manager")
	}

	end := effective.AddDate(0, 0, -1)
	if end.Before(domain.DateOnly(current.StartDate)) {
		return nil, apperrors.NewValidationError("effectiveDate", "must be after the current line's start date")
	}
	current.EndDate = &end
	current.IsActive = false
	current.Touch(actorID, now)
	if err := s.repo.EndReportingLine(ctx, tx, *current); err != nil {
		return nil, err
	}

	if err := s.checkNoCycle(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := s.repo.SaveReportingLine(ctx, tx, next); err != nil {
		s.logUnexpected(ctx, err, "Failed to save reporting line", slog.String("consultant_id", next.ConsultantID))
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Manager changed",
		slog.String("consultant_id", next.ConsultantID),
		slog.String("old_manager_id", current.ManagerID),
		slog.String("new_manager_id", next.ManagerID),
		slog.Time("effective_date", effective))
	return &next, nil
}

func (s *hierarchyService) DeactivateLine(ctx context.Context, lineID string, req dto.DeactivateLineRequest, actorID string) (*domain.ReportingLine, error) {
	if _, err := s.requireAdmin(ctx, actorID, "deactivate", "reporting line "+lineID); err != nil {
		return nil, err
	}
	now := s.now()
	end := domain.DateOnly(now)
	if req.EndDate != nil {
		end = domain.DateOnly(*req.EndDate)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.repo.Rollback(ctx, tx)

	line, err := s.repo.FindReportingLineByIDForUpdate(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if !line.IsActive {
		return nil, apperrors.NewRuleError("reporting line inactive", "reporting line "+lineID+" is already inactive")
	}
	if end.Before(domain.DateOnly(line.StartDate)) {
		return nil, apperrors.NewValidationError("endDate", "must not be before the line's start date")
	}
	line.EndDate = &end
	line.IsActive = false
	line.Touch(actorID, now)
	if err := s.repo.EndReportingLine(ctx, tx, *line); err != nil {
		return nil, err
	}
	if err := s.repo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Reporting line deactivated", slog.String("line_id", lineID), slog.String("actor_id", actorID))
	return line, nil
}

func (s *hierarchyService) ListTeam(ctx context.Context, managerID string, date time.Time) ([]domain.ReportingLine, error) {
	lines, err := s.repo.ListTeamAt(ctx, managerID, domain.DateOnly(date))
	if err != nil {
		s.LogError(ctx, err, "Failed to list team", slog.String("manager_id", managerID))
		return nil, err
	}
	if lines == nil {
		return []domain.ReportingLine{}, nil
	}
	return lines, nil
}

func (s *hierarchyService) ListManagerHistory(ctx context.Context, consultantID string) ([]domain.ReportingLine, error) {
	lines, err := s.repo.ListLinesForConsultant(ctx, consultantID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list manager history", slog.String("consultant_id", consultantID))
		return nil, err
	}
	if lines == nil {
		return []domain.ReportingLine{}, nil
	}
	return lines, nil
}

// checkParticipants verifies both ends of a new line exist and the manager is active.
func (s *hierarchyService) checkParticipants(ctx context.Context, consultantID, managerID string) error {
	if _, err := s.userReader.FindUserByID(ctx, consultantID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: consultant %s", apperrors.ErrNotFound, consultantID)
		}
		return err
	}
	manager, err := s.userReader.FindUserByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: manager %s", apperrors.ErrNotFound, managerID)
		}
		return err
	}
	if !manager.IsActive {
		return apperrors.NewValidationError("managerID", "manager is inactive")
	}
	return nil
}

// checkNoCycle walks up from the new manager and fails if the consultant is reached.
func (s *hierarchyService) checkNoCycle(ctx context.Context, tx pgx.Tx, line domain.ReportingLine) error {
	current := line.ManagerID
	for hop := 0; hop < maxHierarchyDepth; hop++ {
		up, err := s.ManagerAt(ctx, tx, current, line.StartDate)
		if err != nil {
			return err
		}
		if up == nil {
			return nil
		}
		if up.ManagerID == line.ConsultantID {
			return apperrors.NewValidationError("managerID", "would create a cycle in the reporting hierarchy")
		}
		current = up.ManagerID
	}
	return nil
}
