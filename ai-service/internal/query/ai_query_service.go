package query

import (
	"context"
	"time"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

type AnalysisReader interface {
	Get(ctx context.Context, recordID string) (*models.RecordAnalysis, error)
}

type SessionReader interface {
	GetByID(ctx context.Context, id string) (*models.AiSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.AiSession, error)
	Messages(ctx context.Context, sessionID string, limit int) ([]models.AiMessage, error)
}

type ReportReader interface {
	GetByID(ctx context.Context, id string) (*models.FinancialReport, error)
	ListByUser(ctx context.Context, userID string) ([]models.FinancialReport, error)
}

type SpendReader interface {
	Month(ctx context.Context, userID string, month time.Time) ([]models.CategorySummary, error)
}

// AIQueryService answers reads for analyses, chat sessions, reports and the
// spend projection. Every read is restricted to the caller's own data.
type AIQueryService struct {
	analyses AnalysisReader
	sessions SessionReader
	reports  ReportReader
	spend    SpendReader
}

func NewAIQueryService(analyses AnalysisReader, sessions SessionReader, reports ReportReader, spend SpendReader) *AIQueryService {
	return &AIQueryService{analyses: analyses, sessions: sessions, reports: reports, spend: spend}
}

func (s *AIQueryService) GetAnalysis(ctx context.Context, q cqrs.GetAnalysisQuery) (*models.RecordAnalysis, error) {
	analysis, err := s.analyses.Get(ctx, q.RecordID)
	if err != nil {
		return nil, err
	}
	if analysis.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return analysis, nil
}

func (s *AIQueryService) ListSessions(ctx context.Context, q cqrs.ListSessionsQuery) ([]models.AiSession, error) {
	return s.sessions.ListByUser(ctx, q.UserID)
}

func (s *AIQueryService) GetSession(ctx context.Context, q cqrs.GetSessionQuery) (*models.SessionView, error) {
	session, err := s.sessions.GetByID(ctx, q.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	messages, err := s.sessions.Messages(ctx, session.ID, 0)
	if err != nil {
		return nil, err
	}
	return &models.SessionView{AiSession: *session, Messages: messages}, nil
}

func (s *AIQueryService) ListReports(ctx context.Context, q cqrs.ListReportsQuery) ([]models.FinancialReport, error) {
	return s.reports.ListByUser(ctx, q.UserID)
}

func (s *AIQueryService) GetReport(ctx context.Context, q cqrs.GetReportQuery) (*models.FinancialReport, error) {
	report, err := s.reports.GetByID(ctx, q.ReportID)
	if err != nil {
		return nil, err
	}
	if report.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return report, nil
}

// MonthSpend returns the projected totals for q.Month, or the current month
// when it is empty.
func (s *AIQueryService) MonthSpend(ctx context.Context, q cqrs.MonthSpendQuery) ([]models.CategorySummary, error) {
	month := time.Now().UTC()
	if q.Month != "" {
		t, err := time.Parse("2006-01", q.Month)
		if err != nil {
			return nil, errs.ErrInvalidPeriod
		}
		month = t
	}
	return s.spend.Month(ctx, q.UserID, month)
}
