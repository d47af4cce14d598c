package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/retail-ledger/internal/config"
	"github.com/tair/retail-ledger/internal/ledger"
	httpDelivery "github.com/tair/retail-ledger/internal/ledger/delivery/http"
	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/idempotency"
	"github.com/tair/retail-ledger/internal/ledger/ratelimit"
	"github.com/tair/retail-ledger/internal/ledger/repository"
	"github.com/tair/retail-ledger/internal/ledger/repository/memory"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
	"github.com/tair/retail-ledger/internal/ledger/usecase/query"
	"github.com/tair/retail-ledger/kafka"
	"github.com/tair/retail-ledger/pkg/auth"
	"github.com/tair/retail-ledger/pkg/database"
	"github.com/tair/retail-ledger/pkg/logger"
	"github.com/tair/retail-ledger/pkg/tracing"
)

func main() {
	cfg := config.Load()

	logger.Init(logger.Options{
		Service:     cfg.Server.ServiceName,
		Environment: cfg.Server.Environment,
		Level:       cfg.Server.LogLevel,
	})

	logger.Logger.Info().
		Str("service", cfg.Server.ServiceName).
		Str("environment", cfg.Server.Environment).
		Str("log_level", cfg.Server.LogLevel).
		Str("db_driver", cfg.Database.Driver).
		Msg("Starting ledger service")

	tp, err := tracing.InitTracer(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Server.ServiceName,
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
		}
	}()

	uow, ping, closeStore := openStore(cfg)
	defer closeStore()

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	app, err := ledger.InitializeApplication(
		uow,
		domain.SystemClock{Location: cfg.Ledger.Location()},
		publisher,
		prometheus.DefaultRegisterer,
		command.PhoneRegion(cfg.Ledger.DefaultPhoneRegion),
		query.TopProducts(cfg.Ledger.TopProducts),
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{cfg.Kafka.StockReceivedTopic})
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
		}
		defer consumer.Close()

		consumer.RegisterStockReceivedHandler(app.AdjustStock.HandleStockReceived)
		if err := consumer.Start(ctx); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
		}
	}

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	server := newHTTPServer(cfg, app.Handler, ping, newIdempotencyStore(redisClient), newRateLimiter(cfg, redisClient))

	go func() {
		logger.Logger.Info().
			Str("port", cfg.Server.Port).
			Str("metrics_endpoint", "/metrics").
			Msg("HTTP server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Logger.Info().Msg("Server exited")
}

// openStore returns the unit of work, a health probe and a close func
func openStore(cfg *config.Config) (domain.UnitOfWork, func(context.Context) error, func()) {
	if cfg.Database.Driver == "memory" {
		logger.Logger.Warn().Msg("Using in-memory store; data is lost on restart")
		return memory.New(), nil, func() {}
	}

	db, err := database.NewGormConnection(database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		EnableTracing:   cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}

	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().Msg("Database initialized successfully")

	uow := repository.NewUnitOfWorkWithTracing(repository.NewGormUnitOfWork(db), "gorm")
	return uow, pingFunc(db), func() { sqlDB.Close() }
}

func pingFunc(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func newPublisher(cfg *config.Config) (command.EventPublisher, func()) {
	if !cfg.Kafka.Enabled {
		logger.Logger.Info().Msg("Kafka disabled, events are not published")
		return command.NoopPublisher{}, func() {}
	}

	publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka publisher")
	}
	breaker := kafka.NewCircuitBreaker("kafka-publisher", cfg.Kafka.BreakerMaxFailures, cfg.Kafka.BreakerCoolDown)
	return kafka.NewGuardedPublisher(publisher, breaker), func() { publisher.Close() }
}

// newRedisClient returns nil when the cache is disabled or unreachable
func newRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Cache.Enabled {
		return nil
	}

	var opts *redis.Options
	if cfg.Cache.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     net.JoinHostPort(cfg.Cache.RedisHost, cfg.Cache.RedisPort),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, idempotency keys and rate limits are ignored")
		client.Close()
		return nil
	}

	logger.Logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return client
}

func newIdempotencyStore(client *redis.Client) idempotency.Store {
	if client == nil {
		return idempotency.NoopStore{}
	}
	return idempotency.NewRedisStore(client)
}

func newRateLimiter(cfg *config.Config, client *redis.Client) ratelimit.Limiter {
	if client == nil || cfg.Cache.RateLimitRequests <= 0 {
		return ratelimit.NoopLimiter{}
	}
	logger.Logger.Info().
		Int("requests", cfg.Cache.RateLimitRequests).
		Dur("window", cfg.Cache.RateLimitWindow).
		Msg("Rate limiting enabled")
	return ratelimit.NewRedisLimiter(client, cfg.Cache.RateLimitRequests, cfg.Cache.RateLimitWindow)
}

func newHTTPServer(cfg *config.Config, handler *httpDelivery.LedgerHandler, ping func(context.Context) error, store idempotency.Store, limiter ratelimit.Limiter) *http.Server {
	router := mux.NewRouter()

	// Prometheus metrics endpoint outside the API middleware chain
	router.Handle("/metrics", promhttp.Handler())
	handler.RegisterHealthCheck(router, ping)

	api := router.NewRoute().Subrouter()
	mwConfig := httpDelivery.DefaultMiddlewareConfig(
		auth.NewValidator(cfg.Auth.JWTSecret),
		cfg.Server.AllowedOrigins,
		cfg.Server.RequestTimeout,
	)
	mwConfig.RateLimiter = limiter
	httpDelivery.RegisterMiddlewares(api, mwConfig)
	handler.RegisterRoutes(api, idempotency.Middleware(store, cfg.Cache.IdempotencyTTL))

	return &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpDelivery.SetupCORS(mwConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
