package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/models"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.User, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.UserView, error)
	ChangePassword(context.Context, cqrs.ChangePasswordCommand) error
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	GetUser(context.Context, cqrs.GetUserQuery) (*models.UserView, error)
	ListUsers(context.Context, cqrs.ListUsersQuery) ([]*models.UserView, error)
}

// UserHandler routes requests to the command or query service as appropriate.
type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,username"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"max=64"`
}

type UpdateUserRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"displayName" validate:"omitempty,max=64"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

func NewUserHandler(commands UserCommander, queries UserQuerier) *UserHandler {
	return &UserHandler{commands: commands, queries: queries}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	users, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{Limit: limit, Offset: offset})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		UserID:           userID,
		RequestingUserID: requestingUserID,
		RequestingRole:   middleware.GetRole(c),
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only update your own user details")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID:      userID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only change your own password")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	err := h.commands.ChangePassword(c.Request.Context(), cqrs.ChangePasswordCommand{
		UserID:          userID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to change password")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{
		UserID:           userID,
		RequestingUserID: requestingUserID,
		RequestingRole:   middleware.GetRole(c),
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}
