package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

const (
	// handleKeyPrefix is the prefix for handle resolution keys in Redis.
	handleKeyPrefix = "handle:"
)

// RedisHandleDirectory implements repository.HandleDirectory using Redis.
// Entries expire after ttl so renamed handles eventually resolve afresh.
type RedisHandleDirectory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHandleDirectory creates a new Redis-backed handle directory.
func NewRedisHandleDirectory(client *redis.Client, ttl time.Duration) *RedisHandleDirectory {
	return &RedisHandleDirectory{
		client: client,
		ttl:    ttl,
	}
}

// Lookup returns the stable id for a handle key.
// Returns "", nil on miss.
func (d *RedisHandleDirectory) Lookup(ctx context.Context, handleKey string) (string, error) {
	id, err := d.client.Get(ctx, d.buildKey(handleKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
			return "", nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return "", fmt.Errorf("redis get: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
	return id, nil
}

// Remember stores a handle resolution with the directory TTL.
func (d *RedisHandleDirectory) Remember(ctx context.Context, handleKey, stableID string) error {
	if err := d.client.Set(ctx, d.buildKey(handleKey), stableID, d.ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

// buildKey constructs the Redis key for a handle.
func (d *RedisHandleDirectory) buildKey(handleKey string) string {
	return handleKeyPrefix + handleKey
}

var _ repository.HandleDirectory = (*RedisHandleDirectory)(nil)
