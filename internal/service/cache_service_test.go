package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type failingCache struct{ memoryCache }

func (f *failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func TestCacheInvalidateIsScoped(t *testing.T) {
	repo := &memoryCache{}
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	for _, scope := range []string{"default", "north"} {
		cache.Store(ctx, ViewLeaderboard, scope, []string{scope}, 0)
		cache.Store(ctx, ViewBadges, scope, []string{scope}, 0)
	}

	cache.Invalidate(ctx, "default", ViewBadges)
	var got []string
	assert.False(t, cache.Load(ctx, ViewBadges, "default", &got))
	assert.True(t, cache.Load(ctx, ViewLeaderboard, "default", &got))
	assert.Equal(t, []string{"default"}, got)

	cache.Invalidate(ctx, "north")
	assert.False(t, cache.Load(ctx, ViewLeaderboard, "north", &got))
	assert.False(t, cache.Load(ctx, ViewBadges, "north", &got))
	assert.Len(t, repo.values, 1)
	assert.Contains(t, repo.values, "leaderboard:default")
}

func TestCacheFailuresReadAsMisses(t *testing.T) {
	cache := NewCacheService(&failingCache{}, nil, time.Minute, zap.NewNop(), true)
	var got []string
	assert.False(t, cache.Load(context.Background(), ViewLeaderboard, "default", &got))

	var disabled *CacheService
	assert.False(t, disabled.Load(context.Background(), ViewBadges, "default", &got))
	disabled.Store(context.Background(), ViewBadges, "default", got, 0)
	disabled.Invalidate(context.Background(), "default")
}
