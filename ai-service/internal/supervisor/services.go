package supervisor

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/server"
)

// SubscriberService runs a stream consumer. A restart replays the consumer's
// pending messages before reading new ones.
type SubscriberService struct {
	name       string
	subscriber *events.Subscriber
}

func NewSubscriberService(name string, client *redis.Client, cfg events.SubscriberConfig) *SubscriberService {
	return &SubscriberService{name: name, subscriber: events.NewSubscriber(client, cfg)}
}

func (s *SubscriberService) Serve(ctx context.Context) error {
	return s.subscriber.Start(ctx)
}

func (s *SubscriberService) String() string { return s.name }

// HTTPService serves an http.Handler until its context is cancelled.
type HTTPService struct {
	cfg     config.ServerConfig
	handler http.Handler
}

func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{cfg: cfg, handler: handler}
}

func (s *HTTPService) Serve(ctx context.Context) error {
	if err := server.Run(ctx, s.cfg, s.handler); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *HTTPService) String() string { return "http-server:" + s.cfg.Port }

// ServiceFunc adapts a function to suture.Service.
type ServiceFunc struct {
	Name string
	Run  func(ctx context.Context) error
}

func (f ServiceFunc) Serve(ctx context.Context) error { return f.Run(ctx) }

func (f ServiceFunc) String() string { return f.Name }
