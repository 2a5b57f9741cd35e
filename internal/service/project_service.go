package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"poster-server/internal/models"
	"poster-server/internal/repository"
	"poster-server/internal/scene"
)

// saveTimeout bounds a single debounced write; the originating request is
// long gone by the time the timer fires.
const saveTimeout = 10 * time.Second

// ProjectService manages project rows and their documents. Document saves
// are debounced per project: the editor autosaves on every mutation, and only
// the last state within the quiescence window reaches the database.
type ProjectService struct {
	projects repository.ProjectRepository
	debounce *Debouncer
	logger   *zap.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects repository.ProjectRepository, debounce *Debouncer, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		debounce: debounce,
		logger:   logger.Named("ProjectService"),
	}
}

// Get returns a project by id.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// List returns the caller's projects, most recently updated first.
func (s *ProjectService) List(ctx context.Context, userID string, limit, offset int) ([]*models.Project, error) {
	return s.projects.ListByUser(ctx, userID, limit, offset)
}

// Create inserts a new project. The document must at least parse; an empty
// body gets an empty canvas document.
func (s *ProjectService) Create(ctx context.Context, project *models.Project) error {
	if project.UserID == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.JSON == "" {
		project.JSON = `{"objects":[]}`
	}
	if _, err := scene.Parse([]byte(project.JSON)); err != nil {
		return err
	}
	return s.projects.Create(ctx, project)
}

// Rename updates the project name immediately, bypassing the debouncer.
func (s *ProjectService) Rename(ctx context.Context, id, name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	_, err := s.projects.UpdateName(ctx, id, name)
	return err
}

// SaveDocument validates the document and schedules the debounced write.
// Validation happens up front so the editor hears about a malformed payload
// on the request, not in a log line half a second later.
func (s *ProjectService) SaveDocument(ctx context.Context, id, docJSON string, width, height int) error {
	if _, err := s.projects.GetByID(ctx, id); err != nil {
		return err
	}
	if _, err := scene.Parse([]byte(docJSON)); err != nil {
		return err
	}

	s.debounce.Schedule(id, func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if _, err := s.projects.SaveDocument(saveCtx, id, docJSON, width, height); err != nil {
			s.logger.Error("Debounced save failed", zap.String("project_id", id), zap.Error(err))
		}
	})
	return nil
}

// Flush forces all pending debounced saves through. Called on shutdown.
func (s *ProjectService) Flush() {
	s.debounce.Flush()
}
