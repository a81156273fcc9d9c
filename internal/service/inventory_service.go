package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

type badgeRepository interface {
	List(ctx context.Context, scope models.Scope) ([]models.Badge, error)
	FindByName(ctx context.Context, scope models.Scope, name string) (*models.Badge, error)
	Reload(ctx context.Context, scope models.Scope, name string, row int) (*models.Badge, error)
	UpdateQuantity(ctx context.Context, scope models.Scope, row, quantity int) error
}

// BadgeLockKey is the keylock key serializing stock changes of one badge.
func BadgeLockKey(scope, name string) string {
	return "badge:" + scope + ":" + name
}

// InventoryService owns badge stock.
type InventoryService struct {
	repo     badgeRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(repo badgeRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// List returns the scope's badges, served from cache when enabled.
func (s *InventoryService) List(ctx context.Context, scope models.Scope) ([]models.Badge, error) {
	var cached []models.Badge
	if s.cache.Load(ctx, ViewBadges, scope.Name, &cached) {
		return cached, nil
	}
	badges, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, storeFailure(err, "failed to load badges")
	}
	s.cache.Store(ctx, ViewBadges, scope.Name, badges, s.cacheTTL)
	return badges, nil
}

// Get reads a badge straight from the store.
func (s *InventoryService) Get(ctx context.Context, scope models.Scope, name string) (*models.Badge, error) {
	badge, err := s.repo.FindByName(ctx, scope, name)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "badge not found")
		}
		return nil, storeFailure(err, "failed to load badge")
	}
	return badge, nil
}

// Reserve removes quantity units from stock after re-reading the badge row.
// The caller must hold the badge lock.
func (s *InventoryService) Reserve(ctx context.Context, scope models.Scope, badge *models.Badge, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "quantity must be positive")
	}
	current, err := s.repo.Reload(ctx, scope, badge.Name, badge.Row)
	if err != nil {
		return 0, storeFailure(err, "failed to re-read badge")
	}
	if current.AvailableQuantity < quantity {
		return 0, appErrors.Clone(appErrors.ErrInsufficientStock, "insufficient badge stock")
	}
	remaining := current.AvailableQuantity - quantity
	if err := s.repo.UpdateQuantity(ctx, scope, current.Row, remaining); err != nil {
		return 0, storeFailure(err, "failed to reserve badge")
	}
	s.invalidate(ctx, scope)
	return remaining, nil
}

// Release returns quantity units to stock. The caller must hold the badge lock.
func (s *InventoryService) Release(ctx context.Context, scope models.Scope, badge *models.Badge, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "quantity must be positive")
	}
	current, err := s.repo.Reload(ctx, scope, badge.Name, badge.Row)
	if err != nil {
		return 0, storeFailure(err, "failed to re-read badge")
	}
	available := current.AvailableQuantity + quantity
	if err := s.repo.UpdateQuantity(ctx, scope, current.Row, available); err != nil {
		return 0, storeFailure(err, "failed to release badge")
	}
	s.invalidate(ctx, scope)
	return available, nil
}

func (s *InventoryService) invalidate(ctx context.Context, scope models.Scope) {
	s.cache.Invalidate(ctx, scope.Name, ViewBadges)
}
