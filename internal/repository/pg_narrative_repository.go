package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"poster-server/internal/models"
)

const (
	getNarrativeByProjectQuery = `
		SELECT project_id, narrative_0, narrative_1, narrative_2, narrative_3
		FROM narratives
		WHERE project_id = $1
	`
	updateNarrativeQuery = `
		UPDATE narratives
		SET narrative_0 = $2, narrative_1 = $3, narrative_2 = $4, narrative_3 = $5
		WHERE project_id = $1
		RETURNING project_id
	`
	createNarrativeQuery = `
		INSERT INTO narratives (project_id, narrative_0, narrative_1, narrative_2, narrative_3)
		VALUES ($1, $2, $3, $4, $5)
	`
)

// NarrativeRepository stores the four narrative slots per project.
type NarrativeRepository interface {
	GetByProject(ctx context.Context, projectID string) (*models.Narrative, error)
	// Update replaces all four slots at once; models.ErrNotFound when the
	// project has no narrative row.
	Update(ctx context.Context, narrative *models.Narrative) error
	Create(ctx context.Context, narrative *models.Narrative) error
}

type PgNarrativeRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgNarrativeRepository creates a new PgNarrativeRepository.
func NewPgNarrativeRepository(pool *pgxpool.Pool, logger *zap.Logger) *PgNarrativeRepository {
	return &PgNarrativeRepository{
		pool:   pool,
		logger: logger.Named("PgNarrativeRepo"),
	}
}

func (r *PgNarrativeRepository) GetByProject(ctx context.Context, projectID string) (*models.Narrative, error) {
	var narrative models.Narrative
	err := pgxscan.Get(ctx, r.pool, &narrative, getNarrativeByProjectQuery, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get narratives", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("error getting narratives: %w", err)
	}
	return &narrative, nil
}

func (r *PgNarrativeRepository) Update(ctx context.Context, narrative *models.Narrative) error {
	var projectID string
	err := r.pool.QueryRow(ctx, updateNarrativeQuery,
		narrative.ProjectID,
		narrative.Narrative0,
		narrative.Narrative1,
		narrative.Narrative2,
		narrative.Narrative3,
	).Scan(&projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		r.logger.Error("Failed to update narratives", zap.String("project_id", narrative.ProjectID), zap.Error(err))
		return fmt.Errorf("error updating narratives: %w", err)
	}
	return nil
}

func (r *PgNarrativeRepository) Create(ctx context.Context, narrative *models.Narrative) error {
	_, err := r.pool.Exec(ctx, createNarrativeQuery,
		narrative.ProjectID,
		narrative.Narrative0,
		narrative.Narrative1,
		narrative.Narrative2,
		narrative.Narrative3,
	)
	if err != nil {
		r.logger.Error("Failed to create narratives", zap.String("project_id", narrative.ProjectID), zap.Error(err))
		return fmt.Errorf("%w: error creating narratives: %v", models.ErrBadRequest, err)
	}
	return nil
}
