package main

import (
	"context"
	"os/signal"
	"syscall"

	accountcmd "github.com/pennywise/finance/account-service/internal/command"
	"github.com/pennywise/finance/account-service/internal/handler"
	accountqry "github.com/pennywise/finance/account-service/internal/query"
	"github.com/pennywise/finance/account-service/internal/repository"
	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/database"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	redisClient "github.com/pennywise/finance/shared/redis"
	"github.com/pennywise/finance/shared/server"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: serviceName})
	middleware.MustInitJWTSecret(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db, repository.Migrations); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	redis, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redis.Close()

	enforcer, err := middleware.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build authorizer")
	}

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	writeRepo := repository.NewAccountWriteRepository(db)
	readRepo := repository.NewAccountReadRepository(db, redis.Client)

	commandSvc := accountcmd.NewAccountCommandService(writeRepo, readRepo, publisher)
	querySvc := accountqry.NewAccountQueryService(readRepo)

	// Snapshots back ownership checks in record-service.
	go func() {
		n, err := readRepo.WarmCache(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("failed to warm account snapshots")
			return
		}
		logging.Info().Int("accounts", n).Msg("account snapshots warmed")
	}()

	router := server.NewRouter(serviceName)
	v1 := router.Group("/v1/account", middleware.AuthMiddleware(), middleware.Authorize(enforcer))
	handler.NewAccountHandler(commandSvc, querySvc).RegisterRoutes(v1)

	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "account-service-group",
			Consumer: "account-consumer-1",
			Stream:   events.RecordEventsStream,
			Handler:  commandSvc.HandleRecordEvent,
		})
		if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("record event subscriber stopped")
		}
	}()

	if err := server.Run(ctx, cfg.Server, router); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("account service stopped")
}
