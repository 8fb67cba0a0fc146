package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/lib/pq" // PostgreSQL driver

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"fundline/internal/admin"
	"fundline/internal/audit"
	"fundline/internal/broker"
	"fundline/internal/bus"
	"fundline/internal/config"
	"fundline/internal/constants"
	"fundline/internal/deadletter"
	"fundline/internal/eventstore"
	"fundline/internal/ledger"
	"fundline/internal/logger"
	"fundline/internal/notify"
	"fundline/internal/processors"
	"fundline/internal/processors/campaign"
	"fundline/internal/processors/donation"
	"fundline/internal/processors/update"
	"fundline/internal/replay"
	"fundline/internal/search"
	"fundline/pkg/bootstrap"
	"fundline/pkg/cel"
	"fundline/pkg/health"
	"fundline/pkg/metrics"
	"fundline/pkg/middleware"
	"fundline/pkg/migrations"
	"fundline/pkg/ratelimit"
	"fundline/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	producer       broker.Producer
	dispatcher     *bus.Dispatcher
	replayer       *replay.Service
	ledgerRepo     ledger.Repository
	deadLetters    deadletter.Repository
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, "admin-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("PostgreSQL is required")
	}
	a.db = db

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		return fmt.Errorf("MongoDB is required for the campaign search projection")
	}
	a.mongoClient = mongoClient

	dbName := a.config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	if err := migrations.EnsureMongoCollection(ctx, mongoClient.Database(dbName)); err != nil {
		a.logger.WarnwCtx(ctx, "Failed to ensure MongoDB indexes", "error", err)
	}

	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	ledgerBase := ledger.NewRepository(a.db)

	var ledgerRepo ledger.Repository = ledgerBase
	if a.config.CircuitBreaker.Enabled {
		ledgerRepo = ledger.NewCircuitBreakerRepository(ledgerBase, a.config.CircuitBreaker)
		a.logger.InfowCtx(ctx, "Circuit breaker enabled for ledger repository")
	}
	ledgerRepo = ledger.NewCachedRepository(
		ledgerRepo,
		a.redis,
		time.Duration(a.config.Ledger.CacheTTLSeconds)*time.Second,
		a.logger,
	)
	a.ledgerRepo = ledgerRepo

	store := eventstore.NewRepository(a.db)
	a.deadLetters = deadletter.NewRepository(a.db)
	auditWriter := audit.NewWriter(a.db)

	dbName := a.config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	searchRepo := search.NewRepository(a.mongoClient.Database(dbName))

	var notifier *notify.Notifier
	if a.config.Broker.Type == "kafka" && a.config.Broker.Kafka.NotificationTopic != "" {
		producer, err := broker.NewProducer(a.config.Broker, a.logger)
		if err != nil {
			a.logger.WarnwCtx(ctx, "Failed to create notification producer, chained notifications disabled", "error", err)
		} else {
			a.producer = producer
			notifier = notify.NewNotifier(producer, a.config.Broker.Kafka.NotificationTopic)
		}
	}
	if notifier == nil {
		notifier = notify.NewNotifier(nil, "")
	}

	registry := bus.NewRegistry()
	for _, proc := range []processors.Processor{
		donation.NewProcessor(donation.NewRepository(a.db), auditWriter, notifier, a.logger),
		campaign.NewProcessor(campaign.NewRepository(a.db), searchRepo, auditWriter, a.logger),
		update.NewProcessor(auditWriter, notifier, a.logger),
	} {
		if err := registry.Register(proc); err != nil {
			return fmt.Errorf("failed to register processor %s: %w", proc.Name(), err)
		}
	}

	runner := processors.NewRunner(ledgerRepo, a.logger, a.config.Pipeline.StaleClaimAge)
	a.dispatcher = bus.NewDispatcher(registry, runner, store, a.deadLetters, a.logger, a.config.Pipeline.ProcessTimeout)

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	cursors := replay.NewCursorStore(a.redis, time.Duration(a.config.Replay.CursorTTLSeconds)*time.Second)
	a.replayer = replay.NewService(store, a.dispatcher, cursors, evaluator, a.logger, a.config.Replay.BatchSize)

	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("admin-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.Admin.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.config.Admin.RateLimit.RPS,
			Burst:           a.config.Admin.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.Admin.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.Admin.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	svc := admin.NewService(a.dispatcher, a.replayer, a.deadLetters, a.ledgerRepo)
	handler := admin.NewHandler(svc, a.logger)
	handler.RegisterRoutes(router)

	metrics.RegisterPipelineMetrics()
	metrics.RegisterReplayMetrics()
	metrics.RegisterAdminMetrics()
	if a.config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
	if a.producer != nil {
		metrics.RegisterBrokerMetrics()
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgresChecker(a.db))
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Server.Port),
		Handler: a.router,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.producer != nil {
		a.producer.Close()
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
