package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"poster-server/internal/models"
)

const (
	insertGeneratedImageQuery = `
		INSERT INTO generated_images (id, project_id, status, title, image, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`
	listGeneratedImagesSinceQuery = `
		SELECT id, project_id, status, title, image, created_at
		FROM generated_images
		WHERE project_id = $1 AND created_at > $2
		ORDER BY created_at DESC
	`
	listGeneratedImagesQuery = `
		SELECT id, project_id, status, title, image, created_at
		FROM generated_images
		WHERE project_id = $1
		ORDER BY created_at DESC
	`
)

// GeneratedImageRepository stores the append-only history of AI-generated
// documents. Records are never mutated after insert.
type GeneratedImageRepository interface {
	Insert(ctx context.Context, record *models.GeneratedImage) error
	// ListSince returns records created strictly after the watermark, newest
	// first. An empty result is not an error; callers synthesize a fallback.
	ListSince(ctx context.Context, projectID string, watermark time.Time) ([]*models.GeneratedImage, error)
	ListAll(ctx context.Context, projectID string) ([]*models.GeneratedImage, error)
}

type PgGeneratedImageRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgGeneratedImageRepository creates a new PgGeneratedImageRepository.
func NewPgGeneratedImageRepository(pool *pgxpool.Pool, logger *zap.Logger) *PgGeneratedImageRepository {
	return &PgGeneratedImageRepository{
		pool:   pool,
		logger: logger.Named("PgGeneratedImageRepo"),
	}
}

func (r *PgGeneratedImageRepository) Insert(ctx context.Context, record *models.GeneratedImage) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, insertGeneratedImageQuery,
		record.ID,
		record.ProjectID,
		record.Status,
		record.Title,
		record.Image,
	).Scan(&createdAt)
	if err != nil {
		r.logger.Error("Failed to insert generated image",
			zap.String("project_id", record.ProjectID),
			zap.Error(err),
		)
		return fmt.Errorf("error inserting generated image: %w", err)
	}
	record.CreatedAt = &createdAt
	return nil
}

func (r *PgGeneratedImageRepository) ListSince(ctx context.Context, projectID string, watermark time.Time) ([]*models.GeneratedImage, error) {
	var records []*models.GeneratedImage
	err := pgxscan.Select(ctx, r.pool, &records, listGeneratedImagesSinceQuery, projectID, watermark)
	if err != nil {
		r.logger.Error("Failed to list generated images since watermark",
			zap.String("project_id", projectID),
			zap.Time("watermark", watermark),
			zap.Error(err),
		)
		return nil, fmt.Errorf("error listing generated images: %w", err)
	}
	return records, nil
}

func (r *PgGeneratedImageRepository) ListAll(ctx context.Context, projectID string) ([]*models.GeneratedImage, error) {
	var records []*models.GeneratedImage
	err := pgxscan.Select(ctx, r.pool, &records, listGeneratedImagesQuery, projectID)
	if err != nil {
		r.logger.Error("Failed to list generated images", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("error listing generated images: %w", err)
	}
	return records, nil
}
