package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rewards-ledger-api/internal/models"
	appErrors "github.com/noah-isme/rewards-ledger-api/pkg/errors"
	"github.com/noah-isme/rewards-ledger-api/pkg/response"
)

type loginService interface {
	Login(ctx context.Context, scope models.Scope, req models.LoginRequest) (*models.LoginResponse, error)
}

type registrationService interface {
	Register(ctx context.Context, scope models.Scope, req models.RegisterRequest) (*models.StudentRecord, error)
}

type resetCodeService interface {
	Request(ctx context.Context, scope models.Scope, req models.PasswordResetRequest) error
	Confirm(ctx context.Context, scope models.Scope, req models.ConfirmPasswordResetRequest) error
}

// AuthHandler wires login, registration and password reset endpoints.
type AuthHandler struct {
	auth     loginService
	students registrationService
	resets   resetCodeService
	scopes   scopeResolver
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth loginService, students registrationService, resets resetCodeService, scopes scopeResolver) *AuthHandler {
	return &AuthHandler{auth: auth, students: students, resets: resets, scopes: scopes}
}

// Login godoc
// @Summary Authenticate student
// @Description Authenticate by student id and password; returns the profile and an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	scope, err := resolveScope(c, h.scopes, req.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Register godoc
// @Summary Register student
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	scope, err := resolveScope(c, h.scopes, req.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	student, err := h.students.Register(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// RequestPasswordReset godoc
// @Summary Request password reset code
// @Description Mails a 6-digit code valid for 10 minutes
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.PasswordResetRequest true "Student id"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student id required"))
		return
	}
	scope, err := resolveScope(c, h.scopes, req.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.resets.Request(c.Request.Context(), scope, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "reset code sent"}, nil)
}

// ConfirmPasswordReset godoc
// @Summary Confirm password reset
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ConfirmPasswordResetRequest true "Code and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req models.ConfirmPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}
	scope, err := resolveScope(c, h.scopes, req.Scope)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.resets.Confirm(c.Request.Context(), scope, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "password updated"}, nil)
}
