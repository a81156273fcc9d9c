package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/response"
)

type experienceService interface {
	CreditExperience(ctx context.Context, scope models.Scope, id string, amount int) (*models.ExperienceResult, error)
}

type reversalService interface {
	Reverse(ctx context.Context, scope models.Scope, purchaseID string) (*models.ReversalResult, error)
}

// AdminHandler exposes administrative ledger operations behind the admin key.
type AdminHandler struct {
	students  experienceService
	purchases reversalService
	scopes    scopeResolver
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(students experienceService, purchases reversalService, scopes scopeResolver) *AdminHandler {
	return &AdminHandler{students: students, purchases: purchases, scopes: scopes}
}

// AddExperience godoc
// @Summary Credit experience points
// @Tags Admin
// @Accept json
// @Produce json
// @Param X-Admin-Key header string true "Administrator key"
// @Param id path string true "Student ID"
// @Param payload body models.ExperienceRequest true "Amount"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id}/experience [post]
func (h *AdminHandler) AddExperience(c *gin.Context) {
	var req models.ExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid experience payload"))
		return
	}
	scope, err := resolveScope(c, h.scopes, req.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.students.CreditExperience(c.Request.Context(), scope, strings.TrimSpace(c.Param("id")), req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReversePurchase godoc
// @Summary Reverse a logged purchase
// @Description Refunds coins, returns stock and appends a compensating log entry
// @Tags Admin
// @Produce json
// @Param X-Admin-Key header string true "Administrator key"
// @Param id path string true "Purchase ID"
// @Param scope query string false "Scope name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/purchases/{id}/reverse [post]
func (h *AdminHandler) ReversePurchase(c *gin.Context) {
	scope, err := resolveScope(c, h.scopes, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.purchases.Reverse(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
