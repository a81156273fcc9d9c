package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
)

func TestBadgeRepositoryListAndFind(t *testing.T) {
	repo := NewBadgeRepository(seededStore())
	ctx := context.Background()

	badges, err := repo.List(ctx, testScope())
	require.NoError(t, err)
	require.Len(t, badges, 2)
	assert.Equal(t, "Gold", badges[0].Name)
	assert.Equal(t, 5, badges[0].AvailableQuantity)
	assert.Equal(t, 20, badges[0].UnitCost)
	assert.Equal(t, 4, badges[1].Row)

	_, err = repo.FindByName(ctx, testScope(), "Bronze")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestBadgeRepositoryUpdateAndReload(t *testing.T) {
	store := seededStore()
	repo := NewBadgeRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.UpdateQuantity(ctx, testScope(), 2, 3))
	badge, err := repo.Reload(ctx, testScope(), "Gold", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, badge.AvailableQuantity)

	_, err = repo.Reload(ctx, testScope(), "Silver", 2)
	assert.ErrorIs(t, err, ErrRowMoved)
}

func TestBadgeRepositoryRejectsMalformedQuantity(t *testing.T) {
	store := seededStore()
	store.Seed("Badges", [][]string{
		models.BadgeColumns,
		{"Gold", "five", "20"},
	})
	repo := NewBadgeRepository(store)

	_, err := repo.List(context.Background(), testScope())
	assert.ErrorIs(t, err, ErrMalformedCell)

	_, err = repo.Reload(context.Background(), testScope(), "Gold", 2)
	assert.ErrorIs(t, err, ErrMalformedCell)
}
