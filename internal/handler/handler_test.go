package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poster-server/internal/live"
	"poster-server/internal/models"
	"poster-server/internal/render"
	"poster-server/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret"

type stubProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*models.Project
}

func newStubProjectRepo(projects ...*models.Project) *stubProjectRepo {
	repo := &stubProjectRepo{projects: make(map[string]*models.Project)}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

func (r *stubProjectRepo) GetByID(_ context.Context, id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProjectRepo) SaveDocument(_ context.Context, id, docJSON string, width, height int) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return time.Time{}, models.ErrNotFound
	}
	p.JSON = docJSON
	p.Width = width
	p.Height = height
	p.UpdatedAt = time.Now()
	return p.UpdatedAt, nil
}

func (r *stubProjectRepo) Create(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *stubProjectRepo) UpdateName(_ context.Context, id, name string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return time.Time{}, models.ErrNotFound
	}
	p.Name = name
	return time.Now(), nil
}

func (r *stubProjectRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

type stubImageRepo struct {
	mu      sync.Mutex
	records []*models.GeneratedImage
}

func (r *stubImageRepo) Insert(_ context.Context, record *models.GeneratedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	record.CreatedAt = &now
	r.records = append(r.records, record)
	return nil
}

func (r *stubImageRepo) ListSince(_ context.Context, projectID string, watermark time.Time) ([]*models.GeneratedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GeneratedImage
	for _, rec := range r.records {
		if rec.ProjectID == projectID && rec.CreatedAt != nil && rec.CreatedAt.After(watermark) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubImageRepo) ListAll(_ context.Context, projectID string) ([]*models.GeneratedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GeneratedImage
	for _, rec := range r.records {
		if rec.ProjectID == projectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubImageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type stubNarrativeRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Narrative
}

func newStubNarrativeRepo() *stubNarrativeRepo {
	return &stubNarrativeRepo{rows: make(map[string]*models.Narrative)}
}

func (r *stubNarrativeRepo) GetByProject(_ context.Context, projectID string) (*models.Narrative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[projectID]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *stubNarrativeRepo) Update(_ context.Context, narrative *models.Narrative) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[narrative.ProjectID]; !ok {
		return models.ErrNotFound
	}
	clone := *narrative
	r.rows[narrative.ProjectID] = &clone
	return nil
}

func (r *stubNarrativeRepo) Create(_ context.Context, narrative *models.Narrative) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *narrative
	r.rows[narrative.ProjectID] = &clone
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, time.Time) ([]byte, bool) { return nil, false }
func (noopCache) Set(context.Context, string, time.Time, []byte)        {}

// testEnv wires the full HTTP surface over in-memory repositories.
type testEnv struct {
	router     *gin.Engine
	projects   *stubProjectRepo
	images     *stubImageRepo
	narratives *stubNarrativeRepo
	registry   *live.Registry
}

func newTestEnv(projects ...*models.Project) (*testEnv, error) {
	logger := zap.NewNop()

	fonts, err := render.NewFontLibrary()
	if err != nil {
		return nil, err
	}
	assets := render.NewAssetLoader(time.Second, 1<<20, logger)
	renderer := render.NewRenderer(assets, fonts, logger)

	env := &testEnv{
		projects:   newStubProjectRepo(projects...),
		images:     &stubImageRepo{},
		narratives: newStubNarrativeRepo(),
		registry:   live.NewRegistry(logger),
	}

	renderSvc := service.NewRenderService(env.projects, noopCache{}, renderer, 832, 1152, logger)
	imageSvc := service.NewImageService(env.projects, env.images, logger)
	narrativeSvc := service.NewNarrativeService(env.narratives, logger)
	projectSvc := service.NewProjectService(env.projects, service.NewDebouncer(5*time.Millisecond), logger)

	router := gin.New()
	api := router.Group("/api")

	NewRenderHandler(renderSvc, imageSvc, 50*1024, logger).RegisterRoutes(api)
	NewLiveHandler(env.registry, imageSvc, 20*time.Millisecond, logger).RegisterRoutes(api)

	authed := api.Group("")
	authed.Use(AuthMiddleware(testJWTSecret, logger))
	NewNarrativeHandler(narrativeSvc, logger).RegisterRoutes(authed)
	NewProjectHandler(projectSvc, logger).RegisterRoutes(authed)
	NewFullHistoryHandler(imageSvc, logger).RegisterRoutes(authed)

	env.router = router
	return env, nil
}
