package command

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pennywise/finance/ai-service/internal/llm"
	"github.com/pennywise/finance/ai-service/internal/repository"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/models"
)

type fakeModel struct {
	reply  string
	err    error
	calls  int
	system string
	conv   []llm.Message
}

func (m *fakeModel) Generate(_ context.Context, system string, conv []llm.Message) (string, error) {
	m.calls++
	m.system = system
	m.conv = conv
	return m.reply, m.err
}

type fakeSpend struct {
	months    map[string][]models.CategorySummary
	applied   [][]repository.SpendChange
	processed map[string]bool
	err       error
}

func newFakeSpend() *fakeSpend {
	return &fakeSpend{months: map[string][]models.CategorySummary{}, processed: map[string]bool{}}
}

func (f *fakeSpend) Month(_ context.Context, userID string, month time.Time) ([]models.CategorySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.months[repository.SpendKey(userID, month)], nil
}
func (f *fakeSpend) Apply(_ context.Context, _ string, changes []repository.SpendChange) error {
	f.applied = append(f.applied, changes)
	return nil
}
func (f *fakeSpend) EventProcessed(_ context.Context, id string) bool { return f.processed[id] }
func (f *fakeSpend) MarkEventProcessed(_ context.Context, id string)  { f.processed[id] = true }

type fakeAnalyses struct{ saved []*models.RecordAnalysis }

func (f *fakeAnalyses) Save(_ context.Context, a *models.RecordAnalysis) { f.saved = append(f.saved, a) }

type published struct {
	topic, frameType string
	data             any
}

type fakeNotifier struct{ frames []published }

func (f *fakeNotifier) Publish(topic, frameType string, data any) bool {
	f.frames = append(f.frames, published{topic, frameType, data})
	return true
}

type fakeSessions struct {
	sessions map[string]*models.AiSession
	messages map[string][]models.AiMessage
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*models.AiSession{}, messages: map[string][]models.AiMessage{}}
}

func (f *fakeSessions) Create(_ context.Context, s *models.AiSession) error {
	f.sessions[s.ID] = s
	return nil
}
func (f *fakeSessions) GetByID(_ context.Context, id string) (*models.AiSession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errs.ErrSessionNotFound
}
func (f *fakeSessions) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return errs.ErrSessionNotFound
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}
func (f *fakeSessions) Messages(_ context.Context, id string, limit int) ([]models.AiMessage, error) {
	msgs := f.messages[id]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
func (f *fakeSessions) AddMessages(_ context.Context, id string, msgs ...models.AiMessage) error {
	f.messages[id] = append(f.messages[id], msgs...)
	return nil
}

type fakeReports struct{ reports map[string]*models.FinancialReport }

func (f *fakeReports) Create(_ context.Context, r *models.FinancialReport) error {
	f.reports[r.ID] = r
	return nil
}
func (f *fakeReports) GetByID(_ context.Context, id string) (*models.FinancialReport, error) {
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	return nil, errs.ErrReportNotFound
}
func (f *fakeReports) Delete(_ context.Context, id string) error {
	delete(f.reports, id)
	return nil
}

func makeEvent(t *testing.T, id, eventType string, data any) events.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return events.Event{ID: id, Type: eventType, Timestamp: time.Now(), Data: raw}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
