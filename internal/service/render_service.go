// Package service holds the application logic between the HTTP layer and the
// repositories: rendering, generated-image history, narratives and the
// debounced autosave pipeline.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"poster-server/internal/render"
	"poster-server/internal/repository"
	"poster-server/internal/scene"
)

// RenderService turns stored projects and ad-hoc documents into PNGs.
type RenderService struct {
	projects      repository.ProjectRepository
	cache         repository.RenderCache
	renderer      *render.Renderer
	defaultWidth  int
	defaultHeight int
	logger        *zap.Logger
}

// NewRenderService creates a new RenderService. defaultWidth/defaultHeight
// are used for ad-hoc documents that carry no canvas dimensions.
func NewRenderService(
	projects repository.ProjectRepository,
	cache repository.RenderCache,
	renderer *render.Renderer,
	defaultWidth, defaultHeight int,
	logger *zap.Logger,
) *RenderService {
	if defaultWidth <= 0 {
		defaultWidth = 832
	}
	if defaultHeight <= 0 {
		defaultHeight = 1152
	}
	return &RenderService{
		projects:      projects,
		cache:         cache,
		renderer:      renderer,
		defaultWidth:  defaultWidth,
		defaultHeight: defaultHeight,
		logger:        logger.Named("RenderService"),
	}
}

// RenderProject renders the persisted document of a project. Results are
// cached per (project, updated_at) pair, so a save implicitly invalidates.
func (s *RenderService) RenderProject(ctx context.Context, id string) ([]byte, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if png, ok := s.cache.Get(ctx, id, project.UpdatedAt); ok {
		s.logger.Debug("Render cache hit", zap.String("project_id", id))
		return png, nil
	}

	doc, err := scene.Parse([]byte(project.JSON))
	if err != nil {
		return nil, err
	}
	// Documents saved by older editor builds omit canvas dimensions; the
	// project row carries them either way.
	if doc.Width <= 0 || doc.Height <= 0 {
		doc.Width = project.Width
		doc.Height = project.Height
	}

	png, err := s.renderDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, id, project.UpdatedAt, png)
	s.logger.Info("Project rendered",
		zap.String("project_id", id),
		zap.Int("png_bytes", len(png)),
	)
	return png, nil
}

// RenderDocument renders a document supplied directly by the caller, without
// touching the store. Dimensionless documents get the default canvas.
func (s *RenderService) RenderDocument(ctx context.Context, raw []byte) ([]byte, error) {
	doc, err := scene.Parse(raw)
	if err != nil {
		return nil, err
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		doc.Width = s.defaultWidth
		doc.Height = s.defaultHeight
	}
	return s.renderDocument(ctx, doc)
}

func (s *RenderService) renderDocument(ctx context.Context, doc *scene.Document) ([]byte, error) {
	clip, err := scene.ResolveClip(doc)
	if err != nil {
		return nil, err
	}
	png, err := s.renderer.Render(ctx, doc, clip)
	if err != nil {
		return nil, fmt.Errorf("error rendering document: %w", err)
	}
	return png, nil
}
