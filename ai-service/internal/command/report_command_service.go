package command

import (
	"context"
	"time"

	"github.com/pennywise/finance/ai-service/internal/llm"
	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

const monthLayout = "2006-01"

type ReportCommandService struct {
	reports ReportStore
	spend   SpendReader
	model   llm.Model
	now     func() time.Time
}

func NewReportCommandService(reports ReportStore, spend SpendReader, model llm.Model) *ReportCommandService {
	return &ReportCommandService{reports: reports, spend: spend, model: model, now: time.Now}
}

// ParseMonth parses a YYYY-MM period into the first instant of that UTC month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, errs.ErrInvalidPeriod
	}
	return t, nil
}

// GenerateReport writes a report for a past or current month from the spend
// projection, comparing it with the month before.
func (s *ReportCommandService) GenerateReport(ctx context.Context, cmd cqrs.GenerateReportCommand) (*models.FinancialReport, error) {
	start, err := ParseMonth(cmd.Month)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if start.After(now) {
		return nil, errs.ErrInvalidPeriod
	}
	end := start.AddDate(0, 1, 0)

	current, err := s.spend.Month(ctx, cmd.UserID, start)
	if err != nil {
		return nil, err
	}
	previous, err := s.spend.Month(ctx, cmd.UserID, start.AddDate(0, -1, 0))
	if err != nil {
		return nil, err
	}

	content, err := s.model.Generate(ctx, reportSystemPrompt, []llm.Message{
		{Role: models.MessageRoleUser, Content: reportPrompt(start, current, previous)},
	})
	if err != nil {
		return nil, err
	}

	report := &models.FinancialReport{
		ID:          utils.GenerateID(utils.PrefixReport),
		UserID:      cmd.UserID,
		PeriodStart: start,
		PeriodEnd:   end,
		Content:     content,
		CreatedAt:   now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("report_id", report.ID).Str("month", cmd.Month).Msg("report generated")
	return report, nil
}

func (s *ReportCommandService) DeleteReport(ctx context.Context, cmd cqrs.DeleteReportCommand) error {
	report, err := s.reports.GetByID(ctx, cmd.ReportID)
	if err != nil {
		return err
	}
	if report.UserID != cmd.RequestingUserID {
		return errs.ErrForbidden
	}
	return s.reports.Delete(ctx, cmd.ReportID)
}
