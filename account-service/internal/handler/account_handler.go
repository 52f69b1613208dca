package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.AccountView, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.AccountView, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
	Summary(context.Context, cqrs.SummarizeAccountsQuery) ([]models.BalanceSummary, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	AccountType string `json:"accountType" validate:"required,oneof=cash checking savings credit investment"`
	Currency    string `json:"currency" validate:"omitempty,iso4217"`
}

type UpdateAccountRequest struct {
	Name        string `json:"name" validate:"omitempty,max=64"`
	AccountType string `json:"accountType" validate:"omitempty,oneof=cash checking savings credit investment"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

type SummaryResponse struct {
	Balances []models.BalanceSummary `json:"balances"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

// RegisterRoutes mounts the account endpoints on an authenticated group.
// /summary is registered ahead of /:accountId.
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateAccount)
	rg.GET("", h.ListAccounts)
	rg.GET("/summary", h.Summary)
	rg.GET("/:accountId", h.GetAccount)
	rg.PATCH("/:accountId", h.UpdateAccount)
	rg.DELETE("/:accountId", h.DeleteAccount)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		UserID:      userID,
		Name:        req.Name,
		AccountType: req.AccountType,
		Currency:    req.Currency,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	views, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) Summary(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	balances, err := h.queries.Summary(c.Request.Context(), cqrs.SummarizeAccountsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to summarise accounts")
		return
	}

	c.JSON(http.StatusOK, SummaryResponse{Balances: balances})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountID:        c.Param("accountId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountID:        c.Param("accountId"),
		RequestingUserID: userID,
		Name:             req.Name,
		AccountType:      req.AccountType,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update account")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{
		AccountID:        c.Param("accountId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete account")
		return
	}

	c.Status(http.StatusNoContent)
}
