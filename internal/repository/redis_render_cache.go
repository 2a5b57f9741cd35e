package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RenderCache stores encoded PNGs keyed by project id and document
// watermark. The watermark in the key makes invalidation implicit: a new save
// produces a new updated_at and therefore a new key.
type RenderCache interface {
	Get(ctx context.Context, projectID string, watermark time.Time) ([]byte, bool)
	Set(ctx context.Context, projectID string, watermark time.Time, png []byte)
}

type redisRenderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRenderCache creates a Redis-backed RenderCache.
func NewRedisRenderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) RenderCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &redisRenderCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisRenderCache"),
	}
}

func renderCacheKey(projectID string, watermark time.Time) string {
	return fmt.Sprintf("render:%s:%d", projectID, watermark.UnixNano())
}

func (c *redisRenderCache) Get(ctx context.Context, projectID string, watermark time.Time) ([]byte, bool) {
	data, err := c.client.Get(ctx, renderCacheKey(projectID, watermark)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Render cache lookup failed", zap.String("project_id", projectID), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *redisRenderCache) Set(ctx context.Context, projectID string, watermark time.Time, png []byte) {
	if err := c.client.Set(ctx, renderCacheKey(projectID, watermark), png, c.ttl).Err(); err != nil {
		// Cache writes are best effort; the render already succeeded.
		c.logger.Warn("Render cache store failed", zap.String("project_id", projectID), zap.Error(err))
	}
}

// NoopRenderCache is used when Redis is not configured.
type NoopRenderCache struct{}

func (NoopRenderCache) Get(context.Context, string, time.Time) ([]byte, bool) { return nil, false }
func (NoopRenderCache) Set(context.Context, string, time.Time, []byte)        {}
