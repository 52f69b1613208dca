package main

import (
	"context"
	"os/signal"
	"syscall"

	aicmd "github.com/pennywise/finance/ai-service/internal/command"
	"github.com/pennywise/finance/ai-service/internal/handler"
	"github.com/pennywise/finance/ai-service/internal/llm"
	aiqry "github.com/pennywise/finance/ai-service/internal/query"
	"github.com/pennywise/finance/ai-service/internal/repository"
	"github.com/pennywise/finance/ai-service/internal/supervisor"
	"github.com/pennywise/finance/ai-service/internal/websocket"
	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/database"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	redisClient "github.com/pennywise/finance/shared/redis"
	"github.com/pennywise/finance/shared/server"
)

const serviceName = "ai-service"

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

	var model llm.Model = llm.Unavailable{}
	if cfg.LLM.APIKey == "" {
		logging.Warn().Msg("LLM_API_KEY not set, AI features will answer 503")
	} else {
		gemini, err := llm.NewGeminiModel(ctx, cfg.LLM)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to create LLM client")
		}
		model = llm.NewBreakerModel(gemini, cfg.LLM)
	}

	sessionRepo := repository.NewSessionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	analysisRepo := repository.NewAnalysisRepository(redis.Client, cfg.AI.AnalysisTTL)
	spendRepo := repository.NewSpendRepository(redis.Client)

	hub := websocket.NewHub()

	analyser := aicmd.NewAnalyser(model, spendRepo, analysisRepo, hub)
	projector := aicmd.NewSpendProjector(spendRepo)
	chatSvc := aicmd.NewChatCommandService(sessionRepo, spendRepo, model, cfg.AI.HistoryLimit)
	reportSvc := aicmd.NewReportCommandService(reportRepo, spendRepo, model)
	querySvc := aiqry.NewAIQueryService(analysisRepo, sessionRepo, reportRepo, spendRepo)

	limiter := middleware.NewRateLimiter(cfg.AI.RateLimit, cfg.AI.RateBurst)
	defer limiter.Stop()

	router := server.NewRouter(serviceName)
	router.GET("/ws", websocket.NewHandler(hub, cfg.AI.AllowedOrigins).ServeWS)
	v1 := router.Group("/v1/ai",
		middleware.AuthMiddleware(),
		middleware.Authorize(enforcer),
		middleware.RateLimit(limiter),
	)
	handler.NewAIHandler(chatSvc, reportSvc, querySvc).RegisterRoutes(v1)

	tree := supervisor.NewTree(serviceName, supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddMessagingService(hub)
	tree.AddMessagingService(supervisor.NewSubscriberService("analysis-consumer", redis.Client, events.SubscriberConfig{
		Group:    "ai-analyser",
		Consumer: cfg.AI.ConsumerName,
		Stream:   events.AnalysisQueue,
		Handler:  analyser.HandleAnalysisRequest,
		// Analyses are best effort: a failed one is logged and acknowledged.
		DropOnError: true,
	}))
	tree.AddMessagingService(supervisor.NewSubscriberService("spend-projection", redis.Client, events.SubscriberConfig{
		Group:    "ai-service-spend",
		Consumer: cfg.AI.ConsumerName,
		Stream:   events.RecordEventsStream,
		Handler:  projector.HandleRecordEvent,
	}))
	tree.AddAPIService(supervisor.NewHTTPService(cfg.Server, router))

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("supervisor tree stopped")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("services", len(report)).Msg("services did not stop in time")
	}
	logging.Info().Msg("ai service stopped")
}
