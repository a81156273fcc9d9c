package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/response"
)

// AdminKeyHeader carries the static administrator key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards administrative routes. An empty configured key disables
// them entirely.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "administrative routes are disabled"))
			c.Abort()
			return
		}
		provided := c.GetHeader(AdminKeyHeader)
		if provided == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
