package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pennywise/finance/auth-service/internal/handler"
	authqry "github.com/pennywise/finance/auth-service/internal/query"
	"github.com/pennywise/finance/auth-service/internal/repository"
	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/database"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/server"
)

const serviceName = "auth-service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: serviceName})
	middleware.MustInitJWTSecret(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reads the users table owned by user-service; no migrations here.
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// CQRS: auth is read-only; no CommandService needed
	userRepo := repository.NewUserRepository(db)
	querySvc := authqry.NewAuthQueryService(userRepo)
	authHandler := handler.NewAuthHandler(querySvc)

	router := server.NewRouter(serviceName)
	v1 := router.Group("/v1/auth")
	{
		v1.POST("/login", authHandler.Login)
		v1.POST("/refresh", authHandler.RefreshToken)
	}

	if err := server.Run(ctx, cfg.Server, router); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("auth service stopped")
}
