package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSummary(gymID uuid.UUID, active int) *domain.DashboardSummary {
	return &domain.DashboardSummary{
		GymID:         gymID.String(),
		TotalMembers:  active + 1,
		ActiveMembers: active,
		GeneratedAt:   time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
}

func setupRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(client, ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestMemoryCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	gymID := uuid.New()

	_, ok := c.Get(ctx, gymID)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, gymID, newSummary(gymID, 4)))
	got, ok := c.Get(ctx, gymID)
	require.True(t, ok)
	assert.Equal(t, 4, got.ActiveMembers)

	require.NoError(t, c.Invalidate(ctx, gymID))
	_, ok = c.Get(ctx, gymID)
	assert.False(t, ok)
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)
	gymID := uuid.New()

	require.NoError(t, c.Set(ctx, gymID, newSummary(gymID, 1)))
	time.Sleep(60 * time.Millisecond)

	_, ok := c.Get(ctx, gymID)
	assert.False(t, ok)
}

func TestMemoryCache_BoundedSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	first := uuid.New()
	require.NoError(t, c.Set(ctx, first, newSummary(first, 1)))
	for i := 0; i < 2; i++ {
		id := uuid.New()
		require.NoError(t, c.Set(ctx, id, newSummary(id, 1)))
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, first)
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestMemoryCache_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, c.Set(ctx, a, newSummary(a, 1)))
	require.NoError(t, c.Set(ctx, b, newSummary(b, 2)))

	require.NoError(t, c.InvalidateAll(ctx))

	assert.Equal(t, 0, c.Len())
}

func TestRedisCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t, time.Minute)
	gymID := uuid.New()

	require.NoError(t, c.Set(ctx, gymID, newSummary(gymID, 7)))
	assert.True(t, mr.Exists("dashboard:"+gymID.String()))

	got, ok := c.Get(ctx, gymID)
	require.True(t, ok)
	assert.Equal(t, 7, got.ActiveMembers)
	assert.Equal(t, gymID.String(), got.GymID)

	require.NoError(t, c.Invalidate(ctx, gymID))
	_, ok = c.Get(ctx, gymID)
	assert.False(t, ok)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t, 30*time.Second)
	gymID := uuid.New()

	require.NoError(t, c.Set(ctx, gymID, newSummary(gymID, 1)))
	assert.Equal(t, 30*time.Second, mr.TTL("dashboard:"+gymID.String()))

	mr.FastForward(31 * time.Second)
	_, ok := c.Get(ctx, gymID)
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t, time.Minute)
	gymID := uuid.New()

	require.NoError(t, mr.Set("dashboard:"+gymID.String(), "not-json"))

	_, ok := c.Get(ctx, gymID)
	assert.False(t, ok)
}

func TestRedisCache_InvalidateAllKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t, time.Minute)
	a, b := uuid.New(), uuid.New()
	require.NoError(t, c.Set(ctx, a, newSummary(a, 1)))
	require.NoError(t, c.Set(ctx, b, newSummary(b, 1)))
	require.NoError(t, mr.Set("session:other", "x"))

	require.NoError(t, c.InvalidateAll(ctx))

	assert.False(t, mr.Exists("dashboard:"+a.String()))
	assert.False(t, mr.Exists("dashboard:"+b.String()))
	assert.True(t, mr.Exists("session:other"))
}

func TestRedisCache_UnreachableIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t, time.Minute)
	mr.Close()

	_, ok := c.Get(ctx, uuid.New())
	assert.False(t, ok)
}

func TestNewRedisCache_ConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, "127.0.0.1:1", "", time.Minute)
	assert.Error(t, err)
}
