package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
)

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(context.Context, cqrs.LoginCommand) (string, error)
	RefreshToken(context.Context, cqrs.RefreshTokenCommand) (string, error)
}

// AuthHandler handles login and token refresh. No command service needed.
type AuthHandler struct {
	queries AuthQuerier
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

func NewAuthHandler(queries AuthQuerier) *AuthHandler {
	return &AuthHandler{queries: queries}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.respondAuthError(c, err, errs.ErrInvalidCredentials, "Invalid credentials")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.queries.RefreshToken(c.Request.Context(), cqrs.RefreshTokenCommand{
		Token: req.Token,
	})
	if err != nil {
		h.respondAuthError(c, err, errs.ErrInvalidToken, "Invalid token")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

func (h *AuthHandler) respondAuthError(c *gin.Context, err, unauthorized error, message string) {
	if errors.Is(err, unauthorized) {
		middleware.RespondWithError(c, http.StatusUnauthorized, message)
		return
	}
	logging.Ctx(c.Request.Context()).Error().Err(err).Msg("authentication failed")
	middleware.RespondWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
}
