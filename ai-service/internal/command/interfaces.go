package command

import (
	"context"
	"time"

	"github.com/pennywise/finance/ai-service/internal/repository"
	"github.com/pennywise/finance/shared/models"
)

// SpendReader reads month-to-date totals from the spend projection.
type SpendReader interface {
	Month(ctx context.Context, userID string, month time.Time) ([]models.CategorySummary, error)
}

type SpendStore interface {
	SpendReader
	Apply(ctx context.Context, userID string, changes []repository.SpendChange) error
	EventProcessed(ctx context.Context, eventID string) bool
	MarkEventProcessed(ctx context.Context, eventID string)
}

type AnalysisStore interface {
	Save(ctx context.Context, analysis *models.RecordAnalysis)
}

// Notifier delivers a frame to a websocket topic.
type Notifier interface {
	Publish(topic, frameType string, data any) bool
}

type SessionStore interface {
	Create(ctx context.Context, session *models.AiSession) error
	GetByID(ctx context.Context, id string) (*models.AiSession, error)
	Delete(ctx context.Context, id string) error
	Messages(ctx context.Context, sessionID string, limit int) ([]models.AiMessage, error)
	AddMessages(ctx context.Context, sessionID string, messages ...models.AiMessage) error
}

type ReportStore interface {
	Create(ctx context.Context, report *models.FinancialReport) error
	GetByID(ctx context.Context, id string) (*models.FinancialReport, error)
	Delete(ctx context.Context, id string) error
}

// monthOf truncates t to the first instant of its UTC month.
func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
