package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/metrics"
)

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish appends an event to stream and returns the event ID.
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		metrics.RecordPublish(stream, eventType, err)
		return "", fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		metrics.RecordPublish(stream, eventType, err)
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event": eventJSON,
		},
	}

	_, err = p.client.XAdd(ctx, args).Result()
	metrics.RecordPublish(stream, eventType, err)
	if err != nil {
		return "", fmt.Errorf("failed to publish %s to %s: %w", eventType, stream, err)
	}

	return event.ID, nil
}
