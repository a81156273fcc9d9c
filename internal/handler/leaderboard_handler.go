package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/export"
	"github.com/noah-isme/rewards-ledger-api/pkg/response"
)

type leaderboardService interface {
	Rank(ctx context.Context, scope models.Scope) ([]models.RankedStudent, error)
	Export(ctx context.Context, scope models.Scope, format export.Format) ([]byte, string, error)
}

// LeaderboardHandler exposes the experience ranking.
type LeaderboardHandler struct {
	leaderboard leaderboardService
	scopes      scopeResolver
}

// NewLeaderboardHandler constructs a leaderboard handler.
func NewLeaderboardHandler(leaderboard leaderboardService, scopes scopeResolver) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, scopes: scopes}
}

// Rank godoc
// @Summary Leaderboard
// @Tags Leaderboard
// @Produce json
// @Param scope query string false "Scope name"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Rank(c *gin.Context) {
	scope, err := resolveScope(c, h.scopes, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	ranked, err := h.leaderboard.Rank(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranked, map[string]interface{}{"scope": scope.Name, "count": len(ranked)})
}

// Export godoc
// @Summary Export leaderboard
// @Tags Leaderboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param scope query string false "Scope name"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/export [get]
func (h *LeaderboardHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf"))
		return
	}
	scope, err := resolveScope(c, h.scopes, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	body, filename, err := h.leaderboard.Export(c.Request.Context(), scope, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, format.ContentType(), body)
}
