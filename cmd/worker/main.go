package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-quotes/internal/catalog"
	"github.com/noah-isme/backend-quotes/internal/config"
	"github.com/noah-isme/backend-quotes/internal/crm"
	"github.com/noah-isme/backend-quotes/internal/lock"
	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/resilience"
	"github.com/noah-isme/backend-quotes/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "quotes"), nil)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := mustInitRedis(context.Background(), redisOpts, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	crmClient, err := crm.NewClient(crm.ClientConfig{
		BaseURL:     cfg.CRMBaseURL,
		AccessToken: cfg.CRMAccessToken,
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailureRate, cfg.CircuitOpenFor).WithTarget("crm").WithLogger(logger),
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      cfg.RetryJitterPercent,
			Timeout:     cfg.CRMTimeout,
			Target:      "crm",
			Logger:      &logger,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise crm client")
	}

	catalogStore, err := catalog.NewStore(catalog.StoreConfig{
		Fetcher:    crmClient,
		AllowedIDs: cfg.CatalogAllowedIDs,
		Warm:       catalog.NewCache(redisClient, cfg.CatalogWarmTTL),
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog store")
	}

	asynqRedis := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	srv := asynq.NewServer(asynqRedis, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 2),
		Logger:      asynqZerolog{logger},
	})
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeCatalogRefresh, tasks.CatalogRefreshHandler{
		Store:   catalogStore,
		Locker:  lock.Locker{R: redisClient, RetryBackoff: 100 * time.Millisecond},
		LockTTL: 2 * time.Minute,
		Logger:  logger,
	})

	scheduler := asynq.NewScheduler(asynqRedis, &asynq.SchedulerOpts{Logger: asynqZerolog{logger}})
	if _, err := scheduler.Register(cfg.CatalogRefreshCron, tasks.NewCatalogRefreshTask()); err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.CatalogRefreshCron).Msg("register catalog refresh schedule")
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	logger.Info().Str("cron", cfg.CatalogRefreshCron).Msg("worker starting")
	if err := srv.Run(mux); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	}
	scheduler.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqZerolog adapts zerolog to asynq's logger interface.
type asynqZerolog struct {
	l zerolog.Logger
}

func (a asynqZerolog) Debug(args ...interface{}) { a.l.Debug().Msgf("%v", args) }
func (a asynqZerolog) Info(args ...interface{})  { a.l.Info().Msgf("%v", args) }
func (a asynqZerolog) Warn(args ...interface{})  { a.l.Warn().Msgf("%v", args) }
func (a asynqZerolog) Error(args ...interface{}) { a.l.Error().Msgf("%v", args) }
func (a asynqZerolog) Fatal(args ...interface{}) { a.l.Fatal().Msgf("%v", args) }

func mustInitRedis(ctx context.Context, opts *redis.Options, logger zerolog.Logger) *redis.Client {
	redisClient := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
