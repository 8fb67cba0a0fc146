package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"fundline/internal/audit"
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
	"fundline/internal/search"
	"fundline/pkg/bootstrap"
	"fundline/pkg/events"
	"fundline/pkg/health"
	"fundline/pkg/metrics"
	"fundline/pkg/migrations"
	"fundline/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	dispatcher     *bus.Dispatcher
	store          eventstore.Repository
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("pipeline-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if a.Config.Database.RunMigrations {
		if err := a.runMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if err := a.InitBroker("pipeline-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initDispatcher(ctx); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "pipeline-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterPipelineMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

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

	if err := migrations.EnsureMongoCollection(ctx, mongoClient.Database(a.mongoDBName())); err != nil {
		a.Logger.WarnwCtx(ctx, "Failed to ensure MongoDB indexes", "error", err)
	}

	return nil
}

func (a *App) mongoDBName() string {
	if a.Config.Database.MongoDB.Database != "" {
		return a.Config.Database.MongoDB.Database
	}
	return constants.DefaultMongoDBName
}

func (a *App) runMigrations() error {
	driver, err := migratepg.WithInstance(a.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations/postgres", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

func (a *App) initDispatcher(ctx context.Context) error {
	ledgerBase := ledger.NewRepository(a.db)

	var ledgerRepo ledger.Repository = ledgerBase
	if a.Config.CircuitBreaker.Enabled {
		ledgerRepo = ledger.NewCircuitBreakerRepository(ledgerBase, a.Config.CircuitBreaker)
		a.Logger.InfowCtx(ctx, "Circuit breaker enabled for ledger repository")
	}
	ledgerRepo = ledger.NewCachedRepository(
		ledgerRepo,
		a.redis,
		time.Duration(a.Config.Ledger.CacheTTLSeconds)*time.Second,
		a.Logger,
	)

	a.store = eventstore.NewRepository(a.db)
	deadLetters := deadletter.NewRepository(a.db)
	auditWriter := audit.NewWriter(a.db)
	searchRepo := search.NewRepository(a.mongoClient.Database(a.mongoDBName()))

	notificationTopic := a.Config.Broker.Kafka.NotificationTopic
	if notificationTopic == "" {
		notificationTopic = constants.DefaultNotificationTopic
	}
	notifier := notify.NewNotifier(a.Producer, notificationTopic)

	registry := bus.NewRegistry()
	for _, proc := range []processors.Processor{
		donation.NewProcessor(donation.NewRepository(a.db), auditWriter, notifier, a.Logger),
		campaign.NewProcessor(campaign.NewRepository(a.db), searchRepo, auditWriter, a.Logger),
		update.NewProcessor(auditWriter, notifier, a.Logger),
	} {
		if err := registry.Register(proc); err != nil {
			return fmt.Errorf("failed to register processor %s: %w", proc.Name(), err)
		}
	}

	runner := processors.NewRunner(ledgerRepo, a.Logger, a.Config.Pipeline.StaleClaimAge)
	a.dispatcher = bus.NewDispatcher(registry, runner, a.store, deadLetters, a.Logger, a.Config.Pipeline.ProcessTimeout)

	return nil
}

func (a *App) initHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgresChecker(a.db))
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	eventTopic := a.Config.Broker.Kafka.EventTopic
	if eventTopic == "" {
		eventTopic = constants.DefaultEventTopic
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting event consumer", "topic", eventTopic)
		return a.Consumer.Consume(gCtx, eventTopic, a.handleEvent)
	})

	return g.Wait()
}

// handleEvent is the broker ingestion path. The event is appended to the log
// first so replay can find it, then dispatched synchronously. Dispatch
// failures are dead-lettered per processor and must not bounce the message
// back to the broker, otherwise every redelivery would mint fresh
// dead-letter entries for processors that already succeeded.
func (a *App) handleEvent(ctx context.Context, event events.Event) error {
	if err := event.Validate(); err != nil {
		a.Logger.WarnwCtx(ctx, "Dropping invalid event",
			"event_id", event.ID,
			"error", err,
		)
		return nil
	}

	if _, err := a.store.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	deliveries := a.dispatcher.Dispatch(ctx, event)

	failed := 0
	for _, delivery := range deliveries {
		if !delivery.Success {
			failed++
		}
	}
	if failed > 0 {
		a.Logger.WarnwCtx(ctx, "Event dispatched with failures",
			"event_id", event.ID,
			"event_type", event.Type,
			"failed", failed,
			"total", len(deliveries),
		)
	}

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down pipeline service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
