package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pennywise/finance/ai-service/internal/llm"
	"github.com/pennywise/finance/ai-service/internal/websocket"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/metrics"
	"github.com/pennywise/finance/shared/models"
)

// Analyser consumes the analysis queue. Each request produces at most one
// LLM call; a failed request is reported to the subscriber, which drops it.
type Analyser struct {
	model    llm.Model
	spend    SpendReader
	analyses AnalysisStore
	notifier Notifier
	now      func() time.Time
}

func NewAnalyser(model llm.Model, spend SpendReader, analyses AnalysisStore, notifier Notifier) *Analyser {
	return &Analyser{
		model:    model,
		spend:    spend,
		analyses: analyses,
		notifier: notifier,
		now:      time.Now,
	}
}

func (a *Analyser) HandleAnalysisRequest(ctx context.Context, event events.Event) (err error) {
	if event.Type != events.AnalysisRequested {
		return nil
	}
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordAnalyses.WithLabelValues(result).Inc()
	}()

	var req events.AnalysisRequest
	if err := event.Decode(&req); err != nil {
		return err
	}
	log := logging.Ctx(ctx).With().Str("record_id", req.RecordID).Str("user_id", req.UserID).Logger()

	spend, err := a.spend.Month(ctx, req.UserID, req.OccurredAt)
	if err != nil {
		// The analysis is still useful without monthly context.
		log.Warn().Err(err).Msg("spend totals unavailable for analysis")
		spend = nil
	}

	reply, err := a.model.Generate(ctx, analysisSystemPrompt, []llm.Message{
		{Role: models.MessageRoleUser, Content: analysisPrompt(req, spend)},
	})
	if err != nil {
		return fmt.Errorf("failed to analyse record %s: %w", req.RecordID, err)
	}

	analysis := &models.RecordAnalysis{
		RecordID:  req.RecordID,
		UserID:    req.UserID,
		Analysis:  reply,
		CreatedAt: a.now().UTC(),
	}
	a.analyses.Save(ctx, analysis)
	if !a.notifier.Publish(websocket.TopicFor(req.UserID), websocket.FrameAnalysis, analysis) {
		log.Warn().Msg("analysis stored but not pushed")
	}
	log.Info().Msg("record analysed")
	return nil
}
