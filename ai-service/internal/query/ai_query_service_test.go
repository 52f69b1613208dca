package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

type stubAnalyses map[string]*models.RecordAnalysis

func (s stubAnalyses) Get(_ context.Context, id string) (*models.RecordAnalysis, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, errs.ErrAnalysisNotFound
}

type stubSessions struct {
	sessions map[string]*models.AiSession
	messages map[string][]models.AiMessage
}

func (s stubSessions) GetByID(_ context.Context, id string) (*models.AiSession, error) {
	if v, ok := s.sessions[id]; ok {
		return v, nil
	}
	return nil, errs.ErrSessionNotFound
}
func (s stubSessions) ListByUser(_ context.Context, userID string) ([]models.AiSession, error) {
	var out []models.AiSession
	for _, v := range s.sessions {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}
func (s stubSessions) Messages(_ context.Context, id string, _ int) ([]models.AiMessage, error) {
	return s.messages[id], nil
}

type stubReports map[string]*models.FinancialReport

func (s stubReports) GetByID(_ context.Context, id string) (*models.FinancialReport, error) {
	if r, ok := s[id]; ok {
		return r, nil
	}
	return nil, errs.ErrReportNotFound
}
func (s stubReports) ListByUser(context.Context, string) ([]models.FinancialReport, error) {
	return nil, nil
}

type stubSpend struct{ asked time.Time }

func (s *stubSpend) Month(_ context.Context, _ string, month time.Time) ([]models.CategorySummary, error) {
	s.asked = month
	return []models.CategorySummary{}, nil
}

func newTestQueryService() (*AIQueryService, *stubSpend) {
	spend := &stubSpend{}
	svc := NewAIQueryService(
		stubAnalyses{"rec-1": {RecordID: "rec-1", UserID: "usr-1", Analysis: "fine"}},
		stubSessions{
			sessions: map[string]*models.AiSession{"ses-1": {ID: "ses-1", UserID: "usr-1", Title: "t"}},
			messages: map[string][]models.AiMessage{"ses-1": {{ID: "msg-1", Content: "hi"}}},
		},
		stubReports{"rpt-1": {ID: "rpt-1", UserID: "usr-1"}},
		spend,
	)
	return svc, spend
}

func TestOwnershipChecks(t *testing.T) {
	svc, _ := newTestQueryService()
	ctx := context.Background()

	tests := []struct {
		name string
		call func(user string) error
	}{
		{"analysis", func(u string) error {
			_, err := svc.GetAnalysis(ctx, cqrs.GetAnalysisQuery{RecordID: "rec-1", RequestingUserID: u})
			return err
		}},
		{"session", func(u string) error {
			_, err := svc.GetSession(ctx, cqrs.GetSessionQuery{SessionID: "ses-1", RequestingUserID: u})
			return err
		}},
		{"report", func(u string) error {
			_, err := svc.GetReport(ctx, cqrs.GetReportQuery{ReportID: "rpt-1", RequestingUserID: u})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call("usr-1"); err != nil {
				t.Errorf("owner: %v", err)
			}
			if err := tt.call("usr-2"); !errors.Is(err, errs.ErrForbidden) {
				t.Errorf("other user: %v, want ErrForbidden", err)
			}
		})
	}
}

func TestGetSessionIncludesMessages(t *testing.T) {
	svc, _ := newTestQueryService()
	view, err := svc.GetSession(context.Background(), cqrs.GetSessionQuery{SessionID: "ses-1", RequestingUserID: "usr-1"})
	if err != nil {
		t.Fatal(err)
	}
	if view.Title != "t" || len(view.Messages) != 1 {
		t.Errorf("view = %+v", view)
	}
}

func TestMonthSpend(t *testing.T) {
	svc, spend := newTestQueryService()
	ctx := context.Background()

	if _, err := svc.MonthSpend(ctx, cqrs.MonthSpendQuery{UserID: "usr-1", Month: "2026-02"}); err != nil {
		t.Fatal(err)
	}
	if spend.asked.Month() != time.February || spend.asked.Year() != 2026 {
		t.Errorf("asked for %v", spend.asked)
	}
	if _, err := svc.MonthSpend(ctx, cqrs.MonthSpendQuery{UserID: "usr-1", Month: "02/2026"}); !errors.Is(err, errs.ErrInvalidPeriod) {
		t.Errorf("bad month: %v", err)
	}
}
