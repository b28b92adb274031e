package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/murabaat/review-service/internal/auth"
	rediscache "github.com/murabaat/review-service/internal/cache/redis"
	"github.com/murabaat/review-service/internal/config"
	"github.com/murabaat/review-service/internal/event"
	handler "github.com/murabaat/review-service/internal/handler/http"
	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/internal/repository/memory"
	"github.com/murabaat/review-service/internal/repository/postgres"
	"github.com/murabaat/review-service/internal/search"
	esengine "github.com/murabaat/review-service/internal/search/elasticsearch"
	searchmem "github.com/murabaat/review-service/internal/search/memory"
	"github.com/murabaat/review-service/internal/service"
	"github.com/murabaat/review-service/migrations"
	"github.com/murabaat/review-service/pkg/database"
	"github.com/murabaat/review-service/pkg/health"
	pkgkafka "github.com/murabaat/review-service/pkg/kafka"
	"github.com/murabaat/review-service/pkg/tracing"
)

const serviceName = "review-service"

// tokenExpiry only matters for tokens minted by this process (tests and
// tooling); incoming tokens carry their own expiry.
const tokenExpiry = 24 * time.Hour

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          *Store
	redis          *redis.Client
	search         search.Engine
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// Store is the storage backend selected by STORAGE.
type Store struct {
	Companies repository.CompanyRepository
	Reviews   repository.ReviewRepository
	Replies   repository.ReplyRepository
	Reports   repository.ReportRepository

	pool *pgxpool.Pool
}

// OpenStore connects the configured storage backend. For postgres it also
// applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := memory.New()
		return &Store{
			Companies: mem.Companies(),
			Reviews:   mem.Reviews(),
			Replies:   mem.Replies(),
			Reports:   mem.Reports(),
		}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	return &Store{
		Companies: postgres.NewCompanyRepository(pool),
		Reviews:   postgres.NewReviewRepository(pool),
		Replies:   postgres.NewReplyRepository(pool),
		Reports:   postgres.NewReportRepository(pool),
		pool:      pool,
	}, nil
}

// Ping checks the database. The memory backend is always up.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close releases the connection pool, if any.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// OpenSearchIndex connects the configured company search backend. The
// returned *esengine.Engine is nil unless Elasticsearch is in use. An
// unreachable cluster falls back to the in-memory index.
func OpenSearchIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (search.Engine, *esengine.Engine) {
	if cfg.SearchBackend == config.SearchElasticsearch {
		es, err := esengine.New(ctx, cfg.ElasticsearchURL, cfg.SearchIndex, logger)
		if err == nil {
			logger.Info("connected to Elasticsearch",
				slog.String("url", cfg.ElasticsearchURL),
				slog.String("index", cfg.SearchIndex),
			)
			return es, es
		}
		logger.Warn("elasticsearch unavailable, falling back to in-memory company search",
			slog.String("error", err.Error()),
		)
	}
	return searchmem.New(), nil
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if store.pool != nil {
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, store.pool, serviceName); err != nil {
			logger.Warn("register pool metrics", slog.String("error", err.Error()))
		}
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		tracerShutdown: tracerShutdown,
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("storage", store.Ping)

	// Company cache. Redis is optional: without it every read hits storage.
	var companyCache service.CompanyCache
	if cfg.CacheEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, company cache disabled", slog.String("error", err.Error()))
		} else {
			a.redis = client
			companyCache = rediscache.NewCompanyCache(client, cfg.CacheTTL())
			healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
			logger.Info("company cache enabled", slog.String("addr", cfg.RedisAddr))
		}
	}

	// Event publishing. Disabled Kafka leaves a no-op producer.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, a.producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewBreakerPublisher(a.producer, event.DefaultBreakerConfig("kafka-producer"), logger)
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Company search.
	idx, es := OpenSearchIndex(ctx, cfg, logger)
	a.search = idx
	if es != nil {
		healthHandler.RegisterNonCritical("elasticsearch", es.Ping)
	}

	// Build the dependency graph.
	aggregator := service.NewAggregatorService(store.Companies, store.Reviews, companyCache, logger).WithSearchIndex(idx)
	companies := service.NewCompanyService(store.Companies, companyCache, logger).WithSearchIndex(idx)
	if es == nil {
		// the in-memory index starts empty on every boot
		if _, err := companies.ReindexAll(ctx); err != nil {
			logger.Warn("initial company search index build failed", slog.String("error", err.Error()))
		}
	}
	services := handler.Services{
		Companies:  companies,
		Reviews:    service.NewReviewService(store.Reviews, store.Replies, store.Companies, eventProducer, logger),
		Replies:    service.NewReplyService(store.Replies, store.Reviews, store.Companies, logger),
		Reports:    service.NewReportService(store.Reports, store.Reviews, aggregator, eventProducer, cfg.RecomputeOnDelete, logger),
		Moderation: service.NewModerationService(store.Reviews, aggregator, eventProducer, cfg.RecomputeOnDelete, logger),
		Aggregator: aggregator,
	}

	if cfg.KafkaEnabled && cfg.AggregateRepairEnabled {
		a.consumers = a.newRepairConsumers(aggregator)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, tokenExpiry)

	router := handler.NewRouter(services, handler.RouterConfig{
		ServiceName:        serviceName,
		TokenValidator:     tokens.Validate,
		SubmitRateLimitRPS: cfg.SubmitRateLimitRPS,
		SubmitRateBurst:    cfg.SubmitRateLimitBurst,
		TrustedProxyCIDRs:  cfg.TrustedProxyCIDRs,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
	}, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newRepairConsumers subscribes the aggregate repair handler to the events
// that can carry aggregate_stale.
func (a *App) newRepairConsumers(recomputer event.Recomputer) []*pkgkafka.Consumer {
	var store pkgkafka.IdempotencyStore
	ttl := time.Duration(a.cfg.IdempotencyTTLHours) * time.Hour
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, serviceName+":events:", ttl)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(ttl)
	}

	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	repair := pkgkafka.IdempotentHandler(store, event.AggregateRepairHandler(recomputer, a.logger), a.logger)

	topics := []string{event.TopicReviewApproved, event.TopicReviewDeleted}
	consumers := make([]*pkgkafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers: a.cfg.KafkaBrokers,
			GroupID: a.cfg.KafkaConsumerGroup + "-aggregate-repair",
			Topic:   topic,
		}, repair, a.logger).WithDLQ(a.dlq)
		consumers = append(consumers, c)
	}
	return consumers
}

// Run starts the HTTP server and Kafka consumers, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, c := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("aggregate repair consumer: %w", err)
			}
		}(c)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers, DLQ and producer
// 4. Redis client
// 5. Storage
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Kafka.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Redis.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Storage.
	a.store.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
