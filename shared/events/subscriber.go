package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/metrics"
)

type Handler func(ctx context.Context, event Event) error

type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	retryInterval time.Duration
	dropOnError   bool
	logger        zerolog.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration

	// RetryInterval is how often messages this consumer failed to process
	// are read again from its pending list.
	RetryInterval time.Duration

	// DropOnError acknowledges messages whose handler failed instead of
	// leaving them pending for redelivery.
	DropOnError bool
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 30 * time.Second
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryInterval: config.RetryInterval,
		dropOnError:   config.DropOnError,
		logger: logging.WithComponent("subscriber").With().
			Str("stream", config.Stream).
			Str("group", config.Group).
			Str("consumer", config.Consumer).
			Logger(),
	}
}

// Start creates the consumer group if needed, replays this consumer's pending
// messages and then blocks reading new ones until ctx is cancelled. Messages
// left pending by a failed handler are retried every RetryInterval.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.logger.Info().Msg("subscriber started")

	// Pending entries at startup were delivered before a restart and never
	// acknowledged.
	s.replayPending(ctx)
	lastReplay := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("subscriber stopping")
			return ctx.Err()
		default:
		}

		if time.Since(lastReplay) >= s.retryInterval {
			s.replayPending(ctx)
			lastReplay = time.Now()
		}

		if _, err := s.readMessages(ctx, ">"); err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error().Err(err).Msg("error reading messages")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// replayPending walks this consumer's pending list once. Messages that fail
// again stay pending for the next pass.
func (s *Subscriber) replayPending(ctx context.Context) {
	from := "0"
	for {
		last, err := s.readMessages(ctx, from)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("failed to replay pending messages")
			}
			return
		}
		if last == "" {
			return
		}
		from = last
	}
}

// readMessages handles one batch read after id and returns the ID of the last
// message in it, or "" when the batch was empty.
func (s *Subscriber) readMessages(ctx context.Context, id string) (string, error) {
	args := &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}
	if id != ">" {
		// Reading history never blocks.
		args.Block = -1
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from stream: %w", err)
	}

	last := ""
	for _, stream := range streams {
		for _, message := range stream.Messages {
			last = message.ID
			if err := s.processMessage(ctx, message); err != nil {
				if !s.dropOnError {
					metrics.RecordConsume(s.stream, s.group, "error")
					s.logger.Error().Err(err).Str("message_id", message.ID).Msg("failed to process message, leaving pending")
					continue
				}
				metrics.RecordConsume(s.stream, s.group, "dropped")
				s.logger.Error().Err(err).Str("message_id", message.ID).Msg("failed to process message, dropping")
			} else {
				metrics.RecordConsume(s.stream, s.group, "ok")
			}

			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				s.logger.Error().Err(err).Str("message_id", message.ID).Msg("failed to ack message")
			}
		}
	}

	return last, nil
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	ctx = logging.ContextWithRequestID(ctx, event.ID)
	return s.handler(ctx, event)
}
