package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "dashboard:"

// RedisCache shares dashboard summaries between API replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ DashboardCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func cacheKey(gymID uuid.UUID) string {
	return keyPrefix + gymID.String()
}

// Get returns the cached summary of a gym. Redis errors and undecodable values count as a miss.
func (c *RedisCache) Get(ctx context.Context, gymID uuid.UUID) (*domain.DashboardSummary, bool) {
	cached, err := c.client.Get(ctx, cacheKey(gymID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("gym_id", gymID.String()).Msg("Dashboard cache read failed")
		}
		return nil, false
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal(cached, &summary); err != nil {
		log.Warn().Err(err).Str("gym_id", gymID.String()).Msg("Discarding undecodable dashboard cache entry")
		return nil, false
	}
	return &summary, true
}

// Set stores a summary with the cache TTL
func (c *RedisCache) Set(ctx context.Context, gymID uuid.UUID, summary *domain.DashboardSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard summary: %w", err)
	}
	return c.client.Set(ctx, cacheKey(gymID), data, c.ttl).Err()
}

// Invalidate drops the summary of one gym
func (c *RedisCache) Invalidate(ctx context.Context, gymID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(gymID)).Err()
}

// InvalidateAll drops every dashboard key using SCAN so Redis is never blocked
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan dashboard keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
