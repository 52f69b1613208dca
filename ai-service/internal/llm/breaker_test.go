package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/errs"
)

type scriptedModel struct {
	calls int
	err   error
	reply string
}

func (m *scriptedModel) Generate(context.Context, string, []Message) (string, error) {
	m.calls++
	return m.reply, m.err
}

func TestBreakerPassesThrough(t *testing.T) {
	inner := &scriptedModel{reply: "looks fine"}
	b := NewBreakerModel(inner, config.LLMConfig{FailureThreshold: 2, BreakerTimeout: time.Minute})

	got, err := b.Generate(context.Background(), "sys", []Message{{Role: "user", Content: "hi"}})
	if err != nil || got != "looks fine" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedModel{err: errors.New("503 from upstream")}
	b := NewBreakerModel(inner, config.LLMConfig{FailureThreshold: 3, BreakerTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.Generate(ctx, "", nil)
		if !errors.Is(err, errs.ErrAIUnavailable) {
			t.Fatalf("call %d error = %v, want wrapped ErrAIUnavailable", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	_, err := b.Generate(ctx, "", nil)
	if !errors.Is(err, errs.ErrAIUnavailable) {
		t.Errorf("open breaker error = %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	inner := &scriptedModel{err: context.Canceled}
	b := NewBreakerModel(inner, config.LLMConfig{FailureThreshold: 1, BreakerTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = b.Generate(context.Background(), "", nil)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestUnavailable(t *testing.T) {
	if _, err := (Unavailable{}).Generate(context.Background(), "", nil); !errors.Is(err, errs.ErrAIUnavailable) {
		t.Errorf("error = %v", err)
	}
}
