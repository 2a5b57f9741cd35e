package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"poster-server/internal/models"
	"poster-server/internal/repository"
)

// NarrativeService manages the four creative-brief slots of a project.
type NarrativeService struct {
	narratives repository.NarrativeRepository
	logger     *zap.Logger
}

// NewNarrativeService creates a new NarrativeService.
func NewNarrativeService(narratives repository.NarrativeRepository, logger *zap.Logger) *NarrativeService {
	return &NarrativeService{
		narratives: narratives,
		logger:     logger.Named("NarrativeService"),
	}
}

// Get returns the narrative row of a project; models.ErrNotFound when none
// exists yet.
func (s *NarrativeService) Get(ctx context.Context, projectID string) (*models.Narrative, error) {
	return s.narratives.GetByProject(ctx, projectID)
}

// Update replaces all four slots at once. A missing row reports
// models.ErrUnauthorized: update is only ever issued for a project the caller
// owns, so zero affected rows means the caller has no business touching it.
func (s *NarrativeService) Update(ctx context.Context, narrative *models.Narrative) error {
	if narrative.ProjectID == "" {
		return fmt.Errorf("%w: project id is required", models.ErrInvalidInput)
	}
	err := s.narratives.Update(ctx, narrative)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrUnauthorized
	}
	return err
}

// Create inserts a fresh narrative row for a project.
func (s *NarrativeService) Create(ctx context.Context, narrative *models.Narrative) error {
	if narrative.ProjectID == "" {
		return fmt.Errorf("%w: project id is required", models.ErrInvalidInput)
	}
	if err := s.narratives.Create(ctx, narrative); err != nil {
		return err
	}
	s.logger.Info("Narratives created", zap.String("project_id", narrative.ProjectID))
	return nil
}
