package main

import (
	"context"
	"os/signal"
	"syscall"

	recordcmd "github.com/pennywise/finance/record-service/internal/command"
	"github.com/pennywise/finance/record-service/internal/handler"
	recordqry "github.com/pennywise/finance/record-service/internal/query"
	"github.com/pennywise/finance/record-service/internal/repository"
	"github.com/pennywise/finance/record-service/internal/search"
	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/database"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	redisClient "github.com/pennywise/finance/shared/redis"
	"github.com/pennywise/finance/shared/server"
)

const serviceName = "record-service"

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

	es, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to configure elasticsearch")
	}
	index := search.NewRecordIndex(es, cfg.Elasticsearch.Index)
	// Search is degraded, not fatal, while the cluster is unreachable.
	if err := index.EnsureIndex(ctx); err != nil {
		logging.Error().Err(err).Str("index", cfg.Elasticsearch.Index).Msg("failed to ensure search index")
	}

	enforcer, err := middleware.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build authorizer")
	}

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	writeRepo := repository.NewRecordWriteRepository(db)
	readRepo := repository.NewRecordReadRepository(db, redis.Client)
	accounts := repository.NewAccountSnapshotRepository(redis.Client)

	commandSvc := recordcmd.NewRecordCommandService(writeRepo, readRepo, accounts, index, publisher)
	querySvc := recordqry.NewRecordQueryService(readRepo, index)

	router := server.NewRouter(serviceName)
	v1 := router.Group("/v1/records", middleware.AuthMiddleware(), middleware.Authorize(enforcer))
	handler.NewRecordHandler(commandSvc, querySvc).RegisterRoutes(v1)

	if err := server.Run(ctx, cfg.Server, router); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("record service stopped")
}
