package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rewards-ledger-api/pkg/config"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

func TestScopeRegistryResolve(t *testing.T) {
	registry, err := NewScopeRegistry("default", []config.ScopeConfig{
		{Name: "default", Students: "Sheet1", Badges: "Badges", Purchases: "Purchases"},
		{Name: "mba", Students: "MBA", Badges: "MBABadges", Purchases: "MBAPurchases", StudentColumns: "coins=L"},
	})
	require.NoError(t, err)

	scope, err := registry.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", scope.Students)

	scope, err = registry.Resolve(" mba ")
	require.NoError(t, err)
	assert.Equal(t, 11, scope.Layout.Coins)

	_, err = registry.Resolve("law")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.Len(t, registry.All(), 2)
	assert.Equal(t, "default", registry.All()[0].Name)
}

func TestScopeRegistryRejectsBadConfig(t *testing.T) {
	_, err := NewScopeRegistry("default", []config.ScopeConfig{{Name: "mba", Students: "MBA"}})
	assert.Error(t, err)

	_, err = NewScopeRegistry("default", []config.ScopeConfig{{Name: "default", StudentColumns: "id=B"}})
	assert.Error(t, err)
}
