package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pennywise/finance/api-gateway/internal/proxy"
	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/server"
)

const serviceName = "api-gateway"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: serviceName})
	middleware.MustInitJWTSecret(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := proxy.NewGateway(cfg.Gateway)
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid upstream configuration")
	}

	router := server.NewRouter(serviceName)
	gateway.RegisterRoutes(router)

	logging.Info().
		Str("auth", cfg.Gateway.AuthServiceURL).
		Str("user", cfg.Gateway.UserServiceURL).
		Str("account", cfg.Gateway.AccountServiceURL).
		Str("record", cfg.Gateway.RecordServiceURL).
		Str("ai", cfg.Gateway.AIServiceURL).
		Msg("proxying to upstreams")

	if err := server.Run(ctx, cfg.Server, router); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("api gateway stopped")
}
