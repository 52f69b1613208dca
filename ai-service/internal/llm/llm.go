// Package llm is the ai-service's only route to a language model.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/metrics"
	"github.com/pennywise/finance/shared/models"
)

// Message is one turn of a conversation. Role is models.MessageRoleUser or
// models.MessageRoleAssistant.
type Message struct {
	Role    string
	Content string
}

// Model generates a reply to a conversation under a system instruction.
type Model interface {
	Generate(ctx context.Context, system string, conversation []Message) (string, error)
}

// GeminiModel calls a hosted Gemini model through the genai SDK.
type GeminiModel struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewGeminiModel(ctx context.Context, cfg config.LLMConfig) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiModel{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
	}, nil
}

func (m *GeminiModel) Generate(ctx context.Context, system string, conversation []Message) (reply string, err error) {
	start := time.Now()
	defer func() { metrics.RecordLLMRequest("generate", time.Since(start), err) }()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	contents := make([]*genai.Content, 0, len(conversation))
	for _, msg := range conversation {
		role := "user"
		if msg.Role == models.MessageRoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(m.temperature)}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	reply = strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", fmt.Errorf("empty response from model %s", m.model)
	}
	return reply, nil
}

// Unavailable is used when no model is configured. Every call fails with
// errs.ErrAIUnavailable.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string, []Message) (string, error) {
	return "", errs.ErrAIUnavailable
}
