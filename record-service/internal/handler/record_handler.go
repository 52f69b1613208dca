package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/models"
)

// RecordCommander defines the write-side operations used by RecordHandler.
type RecordCommander interface {
	CreateRecord(context.Context, cqrs.CreateRecordCommand) (*models.RecordView, error)
	UpdateRecord(context.Context, cqrs.UpdateRecordCommand) (*models.RecordView, error)
	DeleteRecord(context.Context, cqrs.DeleteRecordCommand) error
}

// RecordQuerier defines the read-side operations used by RecordHandler.
type RecordQuerier interface {
	GetRecord(context.Context, cqrs.GetRecordQuery) (*models.RecordView, error)
	ListRecords(context.Context, cqrs.ListRecordsQuery) ([]models.RecordView, error)
	SearchRecords(context.Context, cqrs.SearchRecordsQuery) ([]models.RecordDocument, error)
	Summarize(context.Context, cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error)
}

type RecordHandler struct {
	commands RecordCommander
	queries  RecordQuerier
}

type CreateRecordRequest struct {
	AccountID   string          `json:"accountId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Category    string          `json:"category" validate:"required,max=64"`
	Description string          `json:"description" validate:"max=512"`
	OccurredAt  *time.Time      `json:"occurredAt"`
}

type UpdateRecordRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        *string          `json:"type" validate:"omitempty,oneof=income expense"`
	Category    *string          `json:"category" validate:"omitempty,max=64"`
	Description *string          `json:"description" validate:"omitempty,max=512"`
	OccurredAt  *time.Time       `json:"occurredAt"`
}

type ListRecordsResponse struct {
	Records []models.RecordView `json:"records"`
}

type SearchResponse struct {
	Results []models.RecordDocument `json:"results"`
}

type SummaryResponse struct {
	Income     decimal.Decimal          `json:"income"`
	Expense    decimal.Decimal          `json:"expense"`
	Net        decimal.Decimal          `json:"net"`
	Categories []models.CategorySummary `json:"categories"`
}

func NewRecordHandler(commands RecordCommander, queries RecordQuerier) *RecordHandler {
	return &RecordHandler{commands: commands, queries: queries}
}

// RegisterRoutes mounts the record endpoints. The fixed /search and /summary
// paths go in before /:recordId.
func (h *RecordHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateRecord)
	rg.GET("", h.ListRecords)
	rg.GET("/search", h.SearchRecords)
	rg.GET("/summary", h.Summary)
	rg.GET("/:recordId", h.GetRecord)
	rg.PATCH("/:recordId", h.UpdateRecord)
	rg.DELETE("/:recordId", h.DeleteRecord)
}

func (h *RecordHandler) CreateRecord(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	cmd := cqrs.CreateRecordCommand{
		UserID:      userID,
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}
	view, err := h.commands.CreateRecord(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to create record")
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *RecordHandler) ListRecords(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	from, to, ok := timeWindow(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	views, err := h.queries.ListRecords(c.Request.Context(), cqrs.ListRecordsQuery{
		UserID:    userID,
		AccountID: c.Query("accountId"),
		Category:  c.Query("category"),
		Type:      c.Query("type"),
		From:      from,
		To:        to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list records")
		return
	}

	c.JSON(http.StatusOK, ListRecordsResponse{Records: views})
}

func (h *RecordHandler) SearchRecords(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	from, to, ok := timeWindow(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	docs, err := h.queries.SearchRecords(c.Request.Context(), cqrs.SearchRecordsQuery{
		UserID:   userID,
		Text:     c.Query("q"),
		Category: c.Query("category"),
		From:     from,
		To:       to,
		Limit:    limit,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to search records")
		return
	}

	c.JSON(http.StatusOK, SearchResponse{Results: docs})
}

func (h *RecordHandler) Summary(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	from, to, ok := timeWindow(c)
	if !ok {
		return
	}
	categories, err := h.queries.Summarize(c.Request.Context(), cqrs.SummarizeRecordsQuery{
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to summarise records")
		return
	}

	resp := SummaryResponse{Income: decimal.Zero, Expense: decimal.Zero, Categories: categories}
	for _, cat := range categories {
		switch cat.Type {
		case models.RecordTypeIncome:
			resp.Income = resp.Income.Add(cat.Total)
		case models.RecordTypeExpense:
			resp.Expense = resp.Expense.Add(cat.Total)
		}
	}
	resp.Net = resp.Income.Sub(resp.Expense)
	c.JSON(http.StatusOK, resp)
}

func (h *RecordHandler) GetRecord(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetRecord(c.Request.Context(), cqrs.GetRecordQuery{
		RecordID:         c.Param("recordId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get record")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateRecord(c.Request.Context(), cqrs.UpdateRecordCommand{
		RecordID:         c.Param("recordId"),
		RequestingUserID: userID,
		Amount:           req.Amount,
		Type:             req.Type,
		Category:         req.Category,
		Description:      req.Description,
		OccurredAt:       req.OccurredAt,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update record")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteRecord(c.Request.Context(), cqrs.DeleteRecordCommand{
		RecordID:         c.Param("recordId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete record")
		return
	}

	c.Status(http.StatusNoContent)
}

// timeWindow parses the optional from/to query parameters. It writes a 400
// and returns false if either is malformed.
func timeWindow(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if from, err = parseTime(c.Query("from")); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' parameter")
		return from, to, false
	}
	if to, err = parseTime(c.Query("to")); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' parameter")
		return from, to, false
	}
	return from, to, true
}

// parseTime accepts RFC 3339 timestamps or plain dates (midnight UTC).
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
