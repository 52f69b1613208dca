package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/database"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	redisClient "github.com/pennywise/finance/shared/redis"
	"github.com/pennywise/finance/shared/server"
	usercmd "github.com/pennywise/finance/user-service/internal/command"
	"github.com/pennywise/finance/user-service/internal/handler"
	userqry "github.com/pennywise/finance/user-service/internal/query"
	"github.com/pennywise/finance/user-service/internal/repository"
)

const serviceName = "user-service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: serviceName})
	middleware.MustInitJWTSecret(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection (write store)
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

	// Redis connection (read model store + event streaming)
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

	writeRepo := repository.NewUserWriteRepository(db)
	readRepo := repository.NewUserReadRepository(db, redis.Client)

	commandSvc := usercmd.NewUserCommandService(writeRepo, readRepo, publisher)
	querySvc := userqry.NewUserQueryService(readRepo)

	userHandler := handler.NewUserHandler(commandSvc, querySvc)

	router := server.NewRouter(serviceName)
	v1 := router.Group("/v1/users")
	{
		v1.POST("", userHandler.CreateUser)

		authed := v1.Group("", middleware.AuthMiddleware(), middleware.Authorize(enforcer))
		authed.GET("", userHandler.ListUsers)
		authed.GET("/:userId", userHandler.GetUser)
		authed.PATCH("/:userId", userHandler.UpdateUser)
		authed.PUT("/:userId/password", userHandler.ChangePassword)
		authed.DELETE("/:userId", userHandler.DeleteUser)
	}

	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "user-service-group",
			Consumer: "user-consumer-1",
			Stream:   events.AccountEventsStream,
			Handler:  commandSvc.HandleAccountEvent,
		})
		if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("account event subscriber stopped")
		}
	}()

	if err := server.Run(ctx, cfg.Server, router); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("user service stopped")
}
