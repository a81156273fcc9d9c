package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	"github.com/noah-isme/rewards-ledger-api/pkg/response"
)

type badgeLister interface {
	List(ctx context.Context, scope models.Scope) ([]models.Badge, error)
}

// BadgeHandler exposes the badge catalogue.
type BadgeHandler struct {
	badges badgeLister
	scopes scopeResolver
}

// NewBadgeHandler constructs a badge handler.
func NewBadgeHandler(badges badgeLister, scopes scopeResolver) *BadgeHandler {
	return &BadgeHandler{badges: badges, scopes: scopes}
}

// List godoc
// @Summary List badges
// @Tags Badges
// @Produce json
// @Param scope query string false "Scope name"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /badges [get]
func (h *BadgeHandler) List(c *gin.Context) {
	scope, err := resolveScope(c, h.scopes, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	badges, err := h.badges.List(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, map[string]interface{}{"scope": scope.Name, "count": len(badges)})
}
