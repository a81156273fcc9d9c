package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/middleware"
	"github.com/noah-isme/rewards-ledger-api/internal/models"
)

// ScopeHeader selects a scope on unauthenticated requests.
const ScopeHeader = middleware.ScopeHeader

type scopeResolver = middleware.ScopeResolver

// resolveScope picks the scope from the token claims, then the body or query
// field, then the X-Scope header; blank falls through to the default scope.
func resolveScope(c *gin.Context, scopes scopeResolver, bodyScope string) (models.Scope, error) {
	if claims := middleware.Claims(c); claims != nil && claims.Scope != "" {
		return scopes.Resolve(claims.Scope)
	}
	name := strings.TrimSpace(bodyScope)
	if name == "" {
		name = strings.TrimSpace(c.Query("scope"))
	}
	if name == "" {
		name = strings.TrimSpace(c.GetHeader(ScopeHeader))
	}
	return scopes.Resolve(name)
}
