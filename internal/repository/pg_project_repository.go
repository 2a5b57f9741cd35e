package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"poster-server/internal/models"
)

const (
	getProjectByIDQuery = `
		SELECT id, user_id, name, json, width, height, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	saveProjectDocumentQuery = `
		UPDATE projects
		SET json = $2, width = $3, height = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	createProjectQuery = `
		INSERT INTO projects (id, user_id, name, json, width, height, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`
	updateProjectNameQuery = `
		UPDATE projects
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	listProjectsByUserQuery = `
		SELECT id, user_id, name, json, width, height, created_at, updated_at
		FROM projects
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
)

// ProjectRepository is the sole writer of persisted scene documents.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	// SaveDocument persists the json/width/height triple, last-writer-wins at
	// row granularity, and returns the advanced updated_at watermark.
	SaveDocument(ctx context.Context, id, docJSON string, width, height int) (time.Time, error)
	Create(ctx context.Context, project *models.Project) error
	UpdateName(ctx context.Context, id, name string) (time.Time, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Project, error)
}

type PgProjectRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgProjectRepository creates a new PgProjectRepository.
func NewPgProjectRepository(pool *pgxpool.Pool, logger *zap.Logger) *PgProjectRepository {
	return &PgProjectRepository{
		pool:   pool,
		logger: logger.Named("PgProjectRepo"),
	}
}

func (r *PgProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := pgxscan.Get(ctx, r.pool, &project, getProjectByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get project", zap.String("project_id", id), zap.Error(err))
		return nil, fmt.Errorf("error getting project: %w", err)
	}
	return &project, nil
}

func (r *PgProjectRepository) SaveDocument(ctx context.Context, id, docJSON string, width, height int) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, saveProjectDocumentQuery, id, docJSON, width, height).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, models.ErrNotFound
		}
		r.logger.Error("Failed to save project document", zap.String("project_id", id), zap.Error(err))
		return time.Time{}, fmt.Errorf("error saving project document: %w", err)
	}
	r.logger.Debug("Project document saved",
		zap.String("project_id", id),
		zap.Time("updated_at", updatedAt),
	)
	return updatedAt, nil
}

func (r *PgProjectRepository) Create(ctx context.Context, project *models.Project) error {
	err := r.pool.QueryRow(ctx, createProjectQuery,
		project.ID,
		project.UserID,
		project.Name,
		project.JSON,
		project.Width,
		project.Height,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create project", zap.String("project_id", project.ID), zap.Error(err))
		return fmt.Errorf("error creating project: %w", err)
	}
	return nil
}

func (r *PgProjectRepository) UpdateName(ctx context.Context, id, name string) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, updateProjectNameQuery, id, name).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, models.ErrNotFound
		}
		r.logger.Error("Failed to rename project", zap.String("project_id", id), zap.Error(err))
		return time.Time{}, fmt.Errorf("error renaming project: %w", err)
	}
	return updatedAt, nil
}

func (r *PgProjectRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Project, error) {
	if limit <= 0 {
		limit = 20
	}
	var projects []*models.Project
	err := pgxscan.Select(ctx, r.pool, &projects, listProjectsByUserQuery, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	return projects, nil
}
