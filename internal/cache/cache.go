// Package cache holds short-lived dashboard summaries per gym.
// Readers tolerate staleness up to the configured TTL; writes to billing invalidate explicitly.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	DefaultTTL     = 5 * time.Minute
	DefaultMaxGyms = 1024
)

// DashboardCache stores computed dashboard summaries keyed by gym
type DashboardCache interface {
	Get(ctx context.Context, gymID uuid.UUID) (*domain.DashboardSummary, bool)
	Set(ctx context.Context, gymID uuid.UUID, summary *domain.DashboardSummary) error
	Invalidate(ctx context.Context, gymID uuid.UUID) error
	InvalidateAll(ctx context.Context) error
}
