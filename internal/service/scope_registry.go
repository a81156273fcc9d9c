package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/config"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
)

// ScopeRegistry resolves scope names to their collections and layout.
type ScopeRegistry struct {
	scopes   map[string]models.Scope
	fallback string
}

// NewScopeRegistry builds the registry from configuration, parsing each
// scope's student column layout.
func NewScopeRegistry(defaultScope string, scopes []config.ScopeConfig) (*ScopeRegistry, error) {
	registry := &ScopeRegistry{scopes: make(map[string]models.Scope, len(scopes)), fallback: defaultScope}
	for _, sc := range scopes {
		layout, err := models.ParseStudentLayout(sc.StudentColumns)
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", sc.Name, err)
		}
		registry.scopes[sc.Name] = models.Scope{
			Name:      sc.Name,
			Students:  sc.Students,
			Badges:    sc.Badges,
			Purchases: sc.Purchases,
			Layout:    layout,
		}
	}
	if _, ok := registry.scopes[defaultScope]; !ok {
		return nil, fmt.Errorf("default scope %q is not configured", defaultScope)
	}
	return registry, nil
}

// Resolve returns the named scope, or the default scope when name is blank.
func (r *ScopeRegistry) Resolve(name string) (models.Scope, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.fallback
	}
	scope, ok := r.scopes[name]
	if !ok {
		return models.Scope{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown scope %q", name))
	}
	return scope, nil
}

// Default returns the name of the default scope.
func (r *ScopeRegistry) Default() string {
	return r.fallback
}

// All returns every configured scope sorted by name.
func (r *ScopeRegistry) All() []models.Scope {
	out := make([]models.Scope, 0, len(r.scopes))
	for _, s := range r.scopes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
