package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a bounded in-process cache. Expired entries are purged by the LRU itself.
type MemoryCache struct {
	cache *lru.LRU[uuid.UUID, *domain.DashboardSummary]
}

var _ DashboardCache = (*MemoryCache)(nil)

// NewMemoryCache creates a MemoryCache holding up to maxGyms summaries for ttl each
func NewMemoryCache(maxGyms int, ttl time.Duration) *MemoryCache {
	if maxGyms <= 0 {
		maxGyms = DefaultMaxGyms
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		cache: lru.NewLRU[uuid.UUID, *domain.DashboardSummary](maxGyms, nil, ttl),
	}
}

// Get returns the cached summary of a gym
func (c *MemoryCache) Get(ctx context.Context, gymID uuid.UUID) (*domain.DashboardSummary, bool) {
	return c.cache.Get(gymID)
}

// Set stores a summary
func (c *MemoryCache) Set(ctx context.Context, gymID uuid.UUID, summary *domain.DashboardSummary) error {
	c.cache.Add(gymID, summary)
	return nil
}

// Invalidate drops the summary of one gym
func (c *MemoryCache) Invalidate(ctx context.Context, gymID uuid.UUID) error {
	c.cache.Remove(gymID)
	return nil
}

// InvalidateAll drops every summary
func (c *MemoryCache) InvalidateAll(ctx context.Context) error {
	c.cache.Purge()
	return nil
}

// Len returns the number of live entries
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}
