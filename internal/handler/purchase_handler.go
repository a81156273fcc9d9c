package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/middleware"
	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/response"
)

type purchaseService interface {
	Purchase(ctx context.Context, scope models.Scope, req models.PurchaseRequest) (*models.PurchaseResult, error)
	Reverse(ctx context.Context, scope models.Scope, purchaseID string) (*models.ReversalResult, error)
}

// PurchaseHandler exposes badge purchases for the authenticated student.
type PurchaseHandler struct {
	purchases purchaseService
	scopes    scopeResolver
}

// NewPurchaseHandler constructs a purchase handler.
func NewPurchaseHandler(purchases purchaseService, scopes scopeResolver) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, scopes: scopes}
}

// Purchase godoc
// @Summary Purchase badges
// @Description Debits coins, reserves stock and logs the purchase for the token's student
// @Tags Purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.PurchaseRequest true "Purchase payload"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope "Applied but not confirmed"
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /purchases [post]
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid purchase payload"))
		return
	}
	req.StudentID = claims.StudentID

	scope, err := resolveScope(c, h.scopes, req.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.purchases.Purchase(c.Request.Context(), scope, req)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
