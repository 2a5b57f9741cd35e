package service

import (
	"context"
	"sync"
	"time"

	"poster-server/internal/models"
)

// Hand-rolled fakes; the repository interfaces are small enough that a mock
// framework would be more code than the fakes themselves.

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*models.Project
	saves    int
	savedDoc string
}

func newFakeProjectRepo(projects ...*models.Project) *fakeProjectRepo {
	repo := &fakeProjectRepo{projects: make(map[string]*models.Project)}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProjectRepo) SaveDocument(_ context.Context, id, docJSON string, width, height int) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return time.Time{}, models.ErrNotFound
	}
	p.JSON = docJSON
	p.Width = width
	p.Height = height
	p.UpdatedAt = p.UpdatedAt.Add(time.Second)
	r.saves++
	r.savedDoc = docJSON
	return p.UpdatedAt, nil
}

func (r *fakeProjectRepo) Create(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *fakeProjectRepo) UpdateName(_ context.Context, id, name string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return time.Time{}, models.ErrNotFound
	}
	p.Name = name
	p.UpdatedAt = p.UpdatedAt.Add(time.Second)
	return p.UpdatedAt, nil
}

func (r *fakeProjectRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]*models.Project, error) {
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

func (r *fakeProjectRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *fakeProjectRepo) lastSavedDoc() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.savedDoc
}

type fakeImageRepo struct {
	mu       sync.Mutex
	records  []*models.GeneratedImage
	inserted []*models.GeneratedImage
	listErr  error
}

func (r *fakeImageRepo) Insert(_ context.Context, record *models.GeneratedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	record.CreatedAt = &now
	r.records = append(r.records, record)
	r.inserted = append(r.inserted, record)
	return nil
}

func (r *fakeImageRepo) ListSince(_ context.Context, projectID string, watermark time.Time) ([]*models.GeneratedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.GeneratedImage
	for _, rec := range r.records {
		if rec.ProjectID == projectID && rec.CreatedAt != nil && rec.CreatedAt.After(watermark) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeImageRepo) ListAll(_ context.Context, projectID string) ([]*models.GeneratedImage, error) {
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

type fakeNarrativeRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Narrative
}

func newFakeNarrativeRepo() *fakeNarrativeRepo {
	return &fakeNarrativeRepo{rows: make(map[string]*models.Narrative)}
}

func (r *fakeNarrativeRepo) GetByProject(_ context.Context, projectID string) (*models.Narrative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[projectID]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeNarrativeRepo) Update(_ context.Context, narrative *models.Narrative) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[narrative.ProjectID]; !ok {
		return models.ErrNotFound
	}
	clone := *narrative
	r.rows[narrative.ProjectID] = &clone
	return nil
}

func (r *fakeNarrativeRepo) Create(_ context.Context, narrative *models.Narrative) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *narrative
	r.rows[narrative.ProjectID] = &clone
	return nil
}

type fakeRenderCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	sets    int
}

func newFakeRenderCache() *fakeRenderCache {
	return &fakeRenderCache{entries: make(map[string][]byte)}
}

func (c *fakeRenderCache) key(projectID string, watermark time.Time) string {
	return projectID + "@" + watermark.UTC().Format(time.RFC3339Nano)
}

func (c *fakeRenderCache) Get(_ context.Context, projectID string, watermark time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[c.key(projectID, watermark)]
	if ok {
		c.hits++
	}
	return data, ok
}

func (c *fakeRenderCache) Set(_ context.Context, projectID string, watermark time.Time, png []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(projectID, watermark)] = png
	c.sets++
}
