package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/internal/service"
)

// ScopeHeader selects a scope on unauthenticated requests.
const ScopeHeader = "X-Scope"

const (
	unmatchedPath = "unmatched"
	unknownScope  = "unknown"
)

// ScopeResolver maps a requested scope name to a configured scope; blank
// resolves to the default.
type ScopeResolver interface {
	Resolve(name string) (models.Scope, error)
}

// Metrics records request count and latency per route and ledger scope.
// Scope labels only ever carry configured scope names.
func Metrics(metricsSvc *service.MetricsService, scopes ScopeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, scopeLabel(c, scopes), c.Writer.Status(), time.Since(start))
	}
}

// scopeLabel runs after the handler chain, so claims set by JWT are visible.
func scopeLabel(c *gin.Context, scopes ScopeResolver) string {
	if scopes == nil {
		return unknownScope
	}
	name := ""
	if claims := Claims(c); claims != nil {
		name = claims.Scope
	}
	if name == "" {
		name = strings.TrimSpace(c.Query("scope"))
	}
	if name == "" {
		name = strings.TrimSpace(c.GetHeader(ScopeHeader))
	}
	scope, err := scopes.Resolve(name)
	if err != nil {
		return unknownScope
	}
	return scope.Name
}
