package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/models"
)

type ChatCommander interface {
	CreateSession(context.Context, cqrs.CreateSessionCommand) (*models.AiSession, error)
	DeleteSession(context.Context, cqrs.DeleteSessionCommand) error
	SendMessage(context.Context, cqrs.SendMessageCommand) (*models.AiMessage, error)
}

type ReportCommander interface {
	GenerateReport(context.Context, cqrs.GenerateReportCommand) (*models.FinancialReport, error)
	DeleteReport(context.Context, cqrs.DeleteReportCommand) error
}

type AIQuerier interface {
	GetAnalysis(context.Context, cqrs.GetAnalysisQuery) (*models.RecordAnalysis, error)
	ListSessions(context.Context, cqrs.ListSessionsQuery) ([]models.AiSession, error)
	GetSession(context.Context, cqrs.GetSessionQuery) (*models.SessionView, error)
	ListReports(context.Context, cqrs.ListReportsQuery) ([]models.FinancialReport, error)
	GetReport(context.Context, cqrs.GetReportQuery) (*models.FinancialReport, error)
	MonthSpend(context.Context, cqrs.MonthSpendQuery) ([]models.CategorySummary, error)
}

type AIHandler struct {
	chat    ChatCommander
	reports ReportCommander
	queries AIQuerier
}

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=120"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type GenerateReportRequest struct {
	Month string `json:"month" validate:"required,datetime=2006-01"`
}

type ListSessionsResponse struct {
	Sessions []models.AiSession `json:"sessions"`
}

type ListReportsResponse struct {
	Reports []models.FinancialReport `json:"reports"`
}

type SpendResponse struct {
	Month      string                   `json:"month,omitempty"`
	Categories []models.CategorySummary `json:"categories"`
}

func NewAIHandler(chat ChatCommander, reports ReportCommander, queries AIQuerier) *AIHandler {
	return &AIHandler{chat: chat, reports: reports, queries: queries}
}

func (h *AIHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses/:recordId", h.GetAnalysis)
	rg.GET("/spend", h.MonthSpend)

	sessions := rg.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("", h.ListSessions)
	sessions.GET("/:sessionId", h.GetSession)
	sessions.DELETE("/:sessionId", h.DeleteSession)
	sessions.POST("/:sessionId/messages", h.SendMessage)

	reports := rg.Group("/reports")
	reports.POST("", h.GenerateReport)
	reports.GET("", h.ListReports)
	reports.GET("/:reportId", h.GetReport)
	reports.DELETE("/:reportId", h.DeleteReport)
}

func (h *AIHandler) GetAnalysis(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	analysis, err := h.queries.GetAnalysis(c.Request.Context(), cqrs.GetAnalysisQuery{
		RecordID:         c.Param("recordId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get analysis")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *AIHandler) MonthSpend(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	month := c.Query("month")
	categories, err := h.queries.MonthSpend(c.Request.Context(), cqrs.MonthSpendQuery{UserID: userID, Month: month})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get spend")
		return
	}
	c.JSON(http.StatusOK, SpendResponse{Month: month, Categories: categories})
}

func (h *AIHandler) CreateSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateSessionRequest
	// An empty body is allowed; the session gets a default title.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	session, err := h.chat.CreateSession(c.Request.Context(), cqrs.CreateSessionCommand{UserID: userID, Title: req.Title})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *AIHandler) ListSessions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	sessions, err := h.queries.ListSessions(c.Request.Context(), cqrs.ListSessionsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, ListSessionsResponse{Sessions: sessions})
}

func (h *AIHandler) GetSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetSession(c.Request.Context(), cqrs.GetSessionQuery{
		SessionID:        c.Param("sessionId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get session")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AIHandler) DeleteSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.chat.DeleteSession(c.Request.Context(), cqrs.DeleteSessionCommand{
		SessionID:        c.Param("sessionId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete session")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AIHandler) SendMessage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	reply, err := h.chat.SendMessage(c.Request.Context(), cqrs.SendMessageCommand{
		SessionID:        c.Param("sessionId"),
		RequestingUserID: userID,
		Content:          req.Content,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to send message")
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *AIHandler) GenerateReport(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	report, err := h.reports.GenerateReport(c.Request.Context(), cqrs.GenerateReportCommand{UserID: userID, Month: req.Month})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to generate report")
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *AIHandler) ListReports(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	reports, err := h.queries.ListReports(c.Request.Context(), cqrs.ListReportsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list reports")
		return
	}
	c.JSON(http.StatusOK, ListReportsResponse{Reports: reports})
}

func (h *AIHandler) GetReport(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	report, err := h.queries.GetReport(c.Request.Context(), cqrs.GetReportQuery{
		ReportID:         c.Param("reportId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AIHandler) DeleteReport(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.reports.DeleteReport(c.Request.Context(), cqrs.DeleteReportCommand{
		ReportID:         c.Param("reportId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete report")
		return
	}
	c.Status(http.StatusNoContent)
}
