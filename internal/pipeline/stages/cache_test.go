// internal/pipeline/stages/cache_test.go
package stages

import (
	"context"
	"testing"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute, logger.NewTestLogger(t)), mr
}

func TestCache_PutGetRoundtrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	defs := []models.StageDefinition{
		{ID: "applied", Name: "Applied"},
		{ID: "screen", Name: "Screen", Gate: &models.StageGate{RequiredScorecards: 2}},
	}

	cache.Put(ctx, "org-1", "job-1", defs)

	got, ok := cache.Get(ctx, "org-1", "job-1")
	require.True(t, ok)
	assert.Equal(t, defs, got)
}

func TestCache_MissForUnknownJob(t *testing.T) {
	cache, _ := newTestCache(t)

	_, ok := cache.Get(context.Background(), "org-1", "unknown")
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsDropped(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(cacheKey("org-1", "job-1"), "{corrupt"))

	_, ok := cache.Get(ctx, "org-1", "job-1")
	assert.False(t, ok)
	assert.False(t, mr.Exists(cacheKey("org-1", "job-1")))
}

func TestCache_Invalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, "org-1", "job-1", FallbackStages())
	require.True(t, mr.Exists(cacheKey("org-1", "job-1")))

	cache.Invalidate(ctx, "org-1", "job-1")
	assert.False(t, mr.Exists(cacheKey("org-1", "job-1")))
}

func TestCache_EntryExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Put(ctx, "org-1", "job-1", FallbackStages())
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "org-1", "job-1")
	assert.False(t, ok)
}
