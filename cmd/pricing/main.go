package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vnmchuo/pricing-service/config"
	"github.com/vnmchuo/pricing-service/internal/api"
	"github.com/vnmchuo/pricing-service/internal/cache"
	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/logging"
	"github.com/vnmchuo/pricing-service/internal/metrics"
	"github.com/vnmchuo/pricing-service/internal/quote"
	"github.com/vnmchuo/pricing-service/internal/quotelog"
	"github.com/vnmchuo/pricing-service/internal/telemetry"
	"github.com/vnmchuo/pricing-service/pkg/ratelimit"
)

const quoteLogQueueSize = 1024

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		logging.New(logging.Config{Level: "info", Format: "console"}).Fatal("failed to load config", zap.Error(err))
	}

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: !cfg.IsProduction(),
	})
	defer logger.Sync()

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("pricing-service", api.ServiceVersion, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer()

	ctx := context.Background()
	m := metrics.New()

	// 3. Cache. An unreachable Redis is not fatal: quotes are computed
	// without it until it comes back.
	var store cache.Store
	var limiter *ratelimit.Limiter
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		store = cache.NewMemoryStore(cfg.CacheMemorySize, cfg.CacheTTL)
		logger.Info("using in-memory cache", zap.Int("size", cfg.CacheMemorySize))
	default:
		rdb := cache.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword, cfg.CacheTimeout)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable at startup", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
		} else {
			logger.Info("redis connected", zap.String("addr", cfg.RedisAddr()))
		}

		store = cache.NewBreakerStore(cache.NewRedisStore(rdb), cache.DefaultBreakerSettings(), logger)
		limiter = newLimiter(rdb, cfg.RateLimitRPM)
	}
	if limiter == nil && cfg.RateLimitRPM > 0 {
		logger.Warn("rate limiting requires the redis cache backend, disabled")
	}

	// 4. Quote log (optional)
	var quoteLog quotelog.Store
	var recorder *quotelog.Recorder
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}

		pg := quotelog.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate quote log", zap.Error(err))
		}
		logger.Info("quote log enabled")

		quoteLog = pg
		recorder = quotelog.NewRecorder(pg, logger, quoteLogQueueSize)
		go recorder.Run()
	}

	// 5. Quote service
	opts := quote.Options{
		CacheTTL:     cfg.CacheTTL,
		CacheTimeout: cfg.CacheTimeout,
	}
	if recorder != nil {
		opts.Recorder = recorder
	}
	quotes := quote.NewService(catalog.Default(), store, m, logger, opts)

	// 6. HTTP
	tracer := otel.GetTracerProvider().Tracer("pricing-service")
	handler := api.NewHandler(quotes, quoteLog, tracer, logger)
	router := api.NewRouter(api.RouterConfig{
		Handler: handler,
		Metrics: m,
		Logger:  logger,
		Limiter: limiter,
	})

	// 7. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("pricing service starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("cache", cfg.CacheBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if recorder != nil {
		if err := recorder.Close(shutdownCtx); err != nil {
			logger.Warn("quote log not fully flushed", zap.Int64("dropped", recorder.Dropped()), zap.Error(err))
		}
	}
	logger.Info("server stopped")
}

func newLimiter(rdb *redis.Client, rpm int64) *ratelimit.Limiter {
	if rpm <= 0 {
		return nil
	}
	return ratelimit.NewLimiter(rdb, rpm)
}
