package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"poster-server/internal/models"
	"poster-server/internal/repository"
)

// ImageService answers generated-image history queries and appends records
// coming from the update pipeline.
type ImageService struct {
	projects repository.ProjectRepository
	images   repository.GeneratedImageRepository
	logger   *zap.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(
	projects repository.ProjectRepository,
	images repository.GeneratedImageRepository,
	logger *zap.Logger,
) *ImageService {
	return &ImageService{
		projects: projects,
		images:   images,
		logger:   logger.Named("ImageService"),
	}
}

// History returns the generated images created after the project's last save,
// newest first. When nothing is newer than the save, the live document itself
// is returned as a single synthesized record so the client always has
// something to show; the synthesized record has no id, timestamp or title.
func (s *ImageService) History(ctx context.Context, projectID string) ([]*models.GeneratedImage, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	records, err := s.images.ListSince(ctx, projectID, project.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return records, nil
	}

	return []*models.GeneratedImage{{
		ProjectID: projectID,
		Status:    "",
		Title:     nil,
		Image:     json.RawMessage(project.JSON),
		CreatedAt: nil,
	}}, nil
}

// FullHistory returns every generated image of a project regardless of the
// save watermark.
func (s *ImageService) FullHistory(ctx context.Context, projectID string) ([]*models.GeneratedImage, error) {
	return s.images.ListAll(ctx, projectID)
}

// Record appends one history record. Used by the update endpoint and the
// queue consumer; the insert fills in id and created_at.
func (s *ImageService) Record(ctx context.Context, record *models.GeneratedImage) error {
	if err := s.images.Insert(ctx, record); err != nil {
		return err
	}
	s.logger.Debug("Generated image recorded",
		zap.String("project_id", record.ProjectID),
		zap.String("status", record.Status),
	)
	return nil
}
