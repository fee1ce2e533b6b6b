package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-quotes/internal/catalog"
	"github.com/noah-isme/backend-quotes/internal/common"
	"github.com/noah-isme/backend-quotes/internal/config"
	"github.com/noah-isme/backend-quotes/internal/crm"
	"github.com/noah-isme/backend-quotes/internal/deal"
	"github.com/noah-isme/backend-quotes/internal/health"
	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/quote"
	"github.com/noah-isme/backend-quotes/internal/ratelimit"
	"github.com/noah-isme/backend-quotes/internal/reconcile"
	"github.com/noah-isme/backend-quotes/internal/resilience"
	"github.com/noah-isme/backend-quotes/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "quotes")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "quotes-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	crmBreaker := resilience.NewBreaker(cfg.CircuitMinReq, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
		WithTarget("crm").
		WithLogger(logger)
	crmHTTP := &resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     crmBreaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      cfg.RetryJitterPercent,
		Timeout:     cfg.CRMTimeout,
		Target:      "crm",
		Logger:      &logger,
	}
	crmClient, err := crm.NewClient(crm.ClientConfig{
		BaseURL:     cfg.CRMBaseURL,
		AccessToken: cfg.CRMAccessToken,
		HTTP:        crmHTTP,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise crm client")
	}

	warmCache := catalog.NewCache(redisClient, cfg.CatalogWarmTTL)
	catalogStore, err := catalog.NewStore(catalog.StoreConfig{
		Fetcher:    crmClient,
		AllowedIDs: cfg.CatalogAllowedIDs,
		Warm:       warmCache,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog store")
	}
	catalogStore.LoadWarm(ctx)
	if err := catalogStore.Refresh(ctx); err != nil {
		// warm snapshot (if any) keeps serving until the next refresh succeeds
		logger.Warn().Err(err).Msg("initial catalog refresh failed")
	}

	gateway := deal.NewGateway(crmClient, logger)
	controller := reconcile.NewController(crmClient, logger)

	quoteHandler := &quote.Handler{Loader: gateway, Catalog: catalogStore}
	dealHandler := &deal.Handler{Gateway: gateway}
	reconcileHandler := &reconcile.Handler{
		Controller: controller,
		Loader:     gateway,
		Catalog:    catalogStore,
		Validate:   validator.New(),
	}
	catalogHandler := &catalogHTTP{store: catalogStore}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	commitLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:commit:"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return common.ClientIP(r) },
			Window: cfg.CommitRateWindow,
			Max:    cfg.CommitRateMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limit check failed") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: envBool("SECURE_ENABLE_HSTS", false)}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{redis: redisClient, crm: crmClient},
		Catalog:      func() health.CatalogState { return catalogStore.Snapshot() },
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		CRMTimeout:   envDurationMillis("HEALTH_READY_CRM_TIMEOUT_MS", 500),
	}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(requireServiceToken(cfg.ServiceToken))

		v.Get("/catalog/products", catalogHandler.products)
		v.Post("/catalog/refresh", catalogHandler.refresh)

		v.Route("/deals/{dealID}", func(d chi.Router) {
			d.Get("/quote", quoteHandler.Preview)
			d.Patch("/properties", dealHandler.UpdateProperties)
			d.With(commitLimit.Middleware, idem.Middleware).Post("/line-items", reconcileHandler.Commit)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

// catalogHTTP exposes the read and refresh endpoints of the catalog store.
type catalogHTTP struct {
	store *catalog.Store
}

func (h *catalogHTTP) products(w http.ResponseWriter, _ *http.Request) {
	snap := h.store.Snapshot()
	common.JSON(w, http.StatusOK, map[string]any{
		"products":  snap.Products(),
		"fetchedAt": snap.FetchedAt(),
	})
}

func (h *catalogHTTP) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "catalog_unavailable", "catalog refresh failed", err.Error())
		return
	}
	snap := h.store.Snapshot()
	common.JSON(w, http.StatusOK, map[string]any{
		"products":  snap.Len(),
		"fetchedAt": snap.FetchedAt(),
	})
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// requireServiceToken guards the API with a static bearer token. When no token
// is configured (local development) the check is disabled.
func requireServiceToken(token string) func(http.Handler) http.Handler {
	token = strings.TrimSpace(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				common.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid service token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type readinessChecker struct {
	redis *redis.Client
	crm   *crm.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingCRM(ctx context.Context, timeout time.Duration) error {
	if c.crm == nil {
		return errors.New("crm not configured")
	}
	return c.crm.Ping(ctx, timeout)
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
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

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
