package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheView names a read model cached once per ledger scope.
type CacheView string

const (
	ViewLeaderboard CacheView = "leaderboard"
	ViewBadges      CacheView = "badges"
)

var allViews = []CacheView{ViewLeaderboard, ViewBadges}

// Key is the cache key holding view for scope.
func (v CacheView) Key(scope string) string { return string(v) + ":" + scope }

// CacheService keeps per-scope read models in the cache. Cache failures are
// logged and counted as misses; they never fail a ledger operation.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Load decodes the cached view for scope into dest and reports a hit.
func (s *CacheService) Load(ctx context.Context, view CacheView, scope string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	key := view.Key(scope)
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("view", string(view)), zap.String("scope", scope), zap.Error(err))
	}
	return err == nil
}

// Store caches value as the view for scope; ttl <= 0 uses the default.
func (s *CacheService) Store(ctx context.Context, view CacheView, scope string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, view.Key(scope), value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("view", string(view)), zap.String("scope", scope), zap.Error(err))
	}
}

// Invalidate drops the named views for scope, or every view when none are named.
// A stale view outlives a failed delete until its TTL expires.
func (s *CacheService) Invalidate(ctx context.Context, scope string, views ...CacheView) {
	if !s.Enabled() {
		return
	}
	if len(views) == 0 {
		views = allViews
	}
	for _, view := range views {
		if err := s.repo.DeleteByPattern(ctx, view.Key(scope)); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("view", string(view)), zap.String("scope", scope), zap.Error(err))
		}
	}
}
