package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/hilthontt/codeclash/internal/coordinator"
	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/configs"
	"github.com/hilthontt/codeclash/internal/infrastructure/events"
	"github.com/hilthontt/codeclash/internal/infrastructure/identity"
	"github.com/hilthontt/codeclash/internal/infrastructure/judge"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/messaging"
	"github.com/hilthontt/codeclash/internal/infrastructure/metrics"
	"github.com/hilthontt/codeclash/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/codeclash/internal/infrastructure/tracing"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
	"github.com/hilthontt/codeclash/internal/persistence/db"
	"github.com/hilthontt/codeclash/internal/persistence/repository"
	"github.com/hilthontt/codeclash/internal/presentation/api"
	"github.com/hilthontt/codeclash/internal/presentation/handler/health"
	"github.com/hilthontt/codeclash/internal/presentation/handler/problems"
	"github.com/hilthontt/codeclash/internal/presentation/handler/rooms"
	"github.com/joho/godotenv"

	_ "github.com/hilthontt/codeclash/docs"
)

const (
	serviceName = "codeclash"
)

//	@title			CodeClash API
//	@version		1.0
//	@description	Room and match coordination for team coding matches.
//	@BasePath		/api
func main() {
	// .env is optional outside development
	_ = godotenv.Load()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})

	tracerCfg := tracing.NewConfig(cfg.Tracing)
	if tracerCfg.ServiceName == "" {
		tracerCfg.ServiceName = serviceName
	}
	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to initialize the tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(context.Background())

	m := metrics.NewDefault()
	checks := map[string]health.Check{}

	// HTTP buckets and per-connection event budgets share one store
	var limiterStore ratelimiter.Store = ratelimiter.NewMemoryStore()
	if cfg.RateLimiter.RedisAddr != "" {
		redisStore := ratelimiter.NewRedis(ratelimiter.RedisOptions{
			Addr:     cfg.RateLimiter.RedisAddr,
			Password: cfg.RateLimiter.RedisPassword,
			DB:       cfg.RateLimiter.RedisDB,
		})
		checks["redis"] = redisStore.Ping
		limiterStore = redisStore
	}
	defer limiterStore.Close()

	eventBudget := ratelimiter.NewEventBudget(limiterStore, map[ratelimiter.EventClass]ratelimiter.Budget{
		ratelimiter.ControlEvents: {Limit: cfg.Events.Control.Limit, Window: cfg.Events.Control.Window},
		ratelimiter.EditorEvents:  {Limit: cfg.Events.Editor.Limit, Window: cfg.Events.Editor.Window},
	})

	wsCore := ws.NewCore(ws.Config{
		ReadLimit:  cfg.Websocket.ReadLimit,
		PongWait:   cfg.Websocket.PongWait,
		PingPeriod: cfg.Websocket.PingPeriod,
		WriteWait:  cfg.Websocket.WriteWait,
		QueueSize:  cfg.Websocket.QueueSize,
	}, logger, m, eventBudget)
	coreDone := make(chan struct{})
	go func() {
		defer close(coreDone)
		wsCore.Run(ctx)
	}()

	var problemRepository domain.ProblemRepository
	var auditRepository domain.MatchAuditRepository
	if cfg.MongoDB.URI != "" {
		mongoCfg := db.NewMongoConfig(cfg.MongoDB)
		client, err := db.NewMongoClient(ctx, mongoCfg, logger)
		if err != nil {
			logger.Fatal(logging.MongoDB, logging.Startup, "failed to connect to mongodb", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer db.DisconnectMongo(context.Background(), client, logger)

		database := db.GetDatabase(client, mongoCfg)
		problemRepository = repository.NewProblemRepository(database)
		auditRepository = repository.NewMatchAuditLogRepository(database)
		if err := auditRepository.EnsureIndexes(ctx); err != nil {
			logger.Warn(logging.MongoDB, logging.Startup, "failed to ensure audit indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	}

	var notifier coordinator.Notifier
	if cfg.RabbitMQ.URI != "" {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, logger)
		if err != nil {
			logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to rabbitmq", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer rabbitmq.Close()

		logger.Info(logging.RabbitMQ, logging.Startup, "rabbitmq connection established", nil)
		notifier = events.NewMatchPublisher(rabbitmq, logger)

		if auditRepository != nil {
			consumer := events.NewMatchConsumer(rabbitmq, auditRepository, logger)
			if err := consumer.Listen(); err != nil {
				logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to start match consumer", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}
	}

	var judgeClient coordinator.Judge
	if cfg.Judge.BaseURL != "" {
		judgeClient = judge.NewClient(judge.Config{
			BaseURL:      cfg.Judge.BaseURL,
			APIKey:       cfg.Judge.APIKey,
			APIHost:      cfg.Judge.APIHost,
			PollInterval: cfg.Judge.PollInterval,
			MaxWait:      cfg.Judge.MaxWait,
		}, logger)
	}

	coord := coordinator.New(coordinator.Options{
		Gateway:       wsCore,
		Logger:        logger,
		Metrics:       m,
		MatchDuration: cfg.Match.Duration,
		Notifier:      notifier,
		Judge:         judgeClient,
		Problems:      problemRepository,
		JudgeTimeout:  cfg.Judge.MaxWait * 2,
		Tracer:        tracing.GetTracer(serviceName),
	})

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Store:            limiterStore,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	var verifier *identity.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	roomHandler := rooms.NewHandler(coord, wsCore, coord, verifier, logger, cfg.Websocket.AllowedOrigins)
	healthHandler := health.NewHandler(checks)
	problemsHandler := problems.NewHandler(problemRepository, logger)

	app := api.NewApplication(*cfg, roomHandler, healthHandler, problemsHandler, logger, m, rl)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("rooms", expvar.Func(func() any {
		return coord.RoomCount()
	}))

	mux := app.Mount()
	if err := app.Run(ctx, mux, func() {
		// Closing the core drops every socket; their read pumps then run
		// disconnect cleanup against the coordinator.
		cancel()
		<-coreDone
		coord.Wait()
	}); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
