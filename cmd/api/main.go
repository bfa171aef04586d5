package main

import (
	"context"
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
	"github.com/hibiken/asynq"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/digicoders-git/ksmedical-backend/internal/auth"
	"github.com/digicoders-git/ksmedical-backend/internal/catalog"
	"github.com/digicoders-git/ksmedical-backend/internal/common"
	"github.com/digicoders-git/ksmedical-backend/internal/config"
	"github.com/digicoders-git/ksmedical-backend/internal/events"
	"github.com/digicoders-git/ksmedical-backend/internal/health"
	"github.com/digicoders-git/ksmedical-backend/internal/lock"
	"github.com/digicoders-git/ksmedical-backend/internal/obs"
	"github.com/digicoders-git/ksmedical-backend/internal/offer"
	"github.com/digicoders-git/ksmedical-backend/internal/order"
	"github.com/digicoders-git/ksmedical-backend/internal/ratelimit"
	"github.com/digicoders-git/ksmedical-backend/internal/referral"
	"github.com/digicoders-git/ksmedical-backend/internal/store"
	"github.com/digicoders-git/ksmedical-backend/internal/tasks"
	"github.com/digicoders-git/ksmedical-backend/internal/withdrawal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "ksmedical")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "ksmedical-api",
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("close mongodb")
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure indexes")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{
		Store:      &events.MongoStore{DB: db},
		Dispatcher: &tasks.Dispatcher{Client: taskClient},
	}

	locker := lock.Locker{R: redisClient, KeyPrefix: "lock", RetryBackoff: cfg.LockRetryBackoff}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	authMiddleware := auth.Middleware{
		Secret: []byte(cfg.JWTSecret),
		Validator: auth.TokenValidator{
			Issuer:    cfg.JWTIssuer,
			Audience:  cfg.JWTAudience,
			ClockSkew: cfg.JWTClockSkew,
			Algorithm: jwa.HS256,
		},
	}

	catalogSvc := &catalog.Service{Store: &catalog.MongoStore{DB: db}}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	offerSvc := &offer.Service{Store: &offer.MongoStore{DB: db}}
	offerHandler := &offer.Handler{Svc: offerSvc}

	orderSvc := &order.Service{
		Store:   &order.MongoStore{DB: db},
		Catalog: catalogSvc,
		Offers:  offerSvc,
		Events:  bus,
		Log:     logger,
	}
	orderHandler := &order.Handler{Svc: orderSvc}
	orderAdmin := &order.AdminHandler{Svc: orderSvc}

	referralSvc := &referral.Service{
		Store:      &referral.MongoStore{DB: db},
		Lock:       locker,
		Events:     bus,
		Log:        logger,
		CodePrefix: cfg.ReferralCodePrefix,
		Bonuses:    cfg.ReferralBonuses,
		LockTTL:    cfg.LockTTL,
	}
	referralHandler := &referral.Handler{Svc: referralSvc}

	withdrawalSvc := &withdrawal.Service{
		Store:     &withdrawal.MongoStore{DB: db},
		Lock:      locker,
		Events:    bus,
		Log:       logger,
		MinAmount: cfg.WithdrawalMinAmount,
		Fee:       cfg.WithdrawalFee,
		LockTTL:   cfg.LockTTL,
	}
	withdrawalHandler := &withdrawal.Handler{Svc: withdrawalSvc}
	withdrawalAdmin := &withdrawal.AdminHandler{Svc: withdrawalSvc}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	limiterStore, err := ratelimit.NewStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	rateLimiter := ratelimit.New(limiterStore, cfg.RateLimitPeriod, cfg.RateLimitBurst)

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
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(ratelimit.Middleware(rateLimiter))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Deps{DB: db, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.List)
		v.Get("/products/{id}", catalogHandler.Get)
		v.Get("/offers", offerHandler.List(true))
		v.Get("/offers/verify", offerHandler.Verify)

		v.Route("/referrals", func(ref chi.Router) {
			ref.Get("/verify", referralHandler.VerifyCode)
			ref.With(idem.Middleware).Post("/register", referralHandler.Register)

			ref.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Get("/dashboard", referralHandler.Dashboard)
				protected.Get("/transactions", referralHandler.Transactions)
				protected.Get("/downline", referralHandler.Downline)
			})
		})

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.With(idem.Middleware).Post("/orders", orderHandler.Place)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{id}", orderHandler.Get)
			authR.Post("/orders/{id}/cancel", orderHandler.Cancel)

			authR.With(idem.Middleware).Post("/withdrawals", withdrawalHandler.Request)
			authR.Get("/withdrawals", withdrawalHandler.List)
			authR.Get("/withdrawals/{id}", withdrawalHandler.Get)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireRole("admin"))
			admin.Get("/offers", offerHandler.List(false))
			admin.Post("/offers", offerHandler.Create)
			admin.Get("/offers/{id}", offerHandler.Get)
			admin.Patch("/offers/{id}", offerHandler.Update)
			admin.Delete("/offers/{id}", offerHandler.Delete)

			admin.Get("/orders", orderAdmin.List)
			admin.Get("/orders/{id}", orderAdmin.Get)
			admin.Patch("/orders/{id}/status", orderAdmin.PatchStatus)
			admin.Patch("/orders/{id}/payment", orderAdmin.PatchPayment)

			admin.Get("/referrals/stats", referralHandler.NetworkStats)

			admin.Get("/withdrawals", withdrawalAdmin.List)
			admin.Post("/withdrawals/{id}/review", withdrawalAdmin.Review)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envDurationMillis(key string, fallbackMs int64) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallbackMs) * time.Millisecond
}
