package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Database wraps the pgx connection pool.
type Database struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a PostgreSQL connection pool from a DSN and verifies it with a
// ping.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 10

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{
		Pool:   pool,
		logger: logger,
	}, nil
}

// NewWithRetry keeps dialing until the database answers; the database
// container often comes up after the service does.
func NewWithRetry(ctx context.Context, dsn string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*Database, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		db, err := New(ctx, dsn, logger)
		if err == nil {
			logger.Info("Connected to PostgreSQL", zap.Int("attempt", i+1))
			return db, nil
		}
		lastErr = fmt.Errorf("postgres connection attempt %d/%d: %w", i+1, maxRetries, err)
		logger.Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// Close shuts the pool down.
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("Database connection closed")
	}
}

// ExecuteInTransaction runs fn inside a transaction, rolling back on error.
func (db *Database) ExecuteInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
