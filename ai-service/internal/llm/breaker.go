package llm

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/metrics"
)

// BreakerModel stops calling the wrapped model after a run of consecutive
// failures and fails fast with errs.ErrAIUnavailable until the breaker
// half-opens again.
type BreakerModel struct {
	next Model
	cb   *gobreaker.CircuitBreaker[string]
}

func NewBreakerModel(next Model, cfg config.LLMConfig) *BreakerModel {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	metrics.LLMBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A cancelled caller says nothing about the model's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("llm circuit breaker state change")
			metrics.LLMBreakerState.Set(stateValue(to))
		},
	})
	return &BreakerModel{next: next, cb: cb}
}

func (b *BreakerModel) Generate(ctx context.Context, system string, conversation []Message) (string, error) {
	reply, err := b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, system, conversation)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", errs.ErrAIUnavailable
	}
	if err != nil && !errors.Is(err, errs.ErrAIUnavailable) {
		return "", fmt.Errorf("%w: %w", errs.ErrAIUnavailable, err)
	}
	return reply, err
}

// State reports the breaker state for health output.
func (b *BreakerModel) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
