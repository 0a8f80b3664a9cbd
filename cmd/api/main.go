// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrimesh/platform-api/internal/admin"
	"github.com/agrimesh/platform-api/internal/auth"
	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/config"
	"github.com/agrimesh/platform-api/internal/core"
	"github.com/agrimesh/platform-api/internal/farm"
	"github.com/agrimesh/platform-api/internal/health"
	"github.com/agrimesh/platform-api/internal/jobs"
	"github.com/agrimesh/platform-api/internal/middleware"
	"github.com/agrimesh/platform-api/internal/org"
	"github.com/agrimesh/platform-api/internal/rbac"
	"github.com/agrimesh/platform-api/internal/server"
	"github.com/agrimesh/platform-api/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	authzStore := authz.NewStore(db.DB)
	contextResolver := authz.NewUserContextResolver(authzStore, logger)

	var authzCache authz.ContextCache
	switch cfg.Authz.CacheBackend {
	case "redis":
		authzCache = authz.NewRedisCache(
			redis.Client,
			contextResolver,
			cfg.Authz.ContextTTL,
		)
	default:
		authzCache = authz.NewMemoryCache(contextResolver, cfg.Authz.ContextTTL)
	}
	logger.Info("authorization cache initialized",
		"backend", cfg.Authz.CacheBackend,
		"ttl", cfg.Authz.ContextTTL,
	)

	orgRepo := org.NewRepository(db.DB)
	orgValidation := org.NewValidationService(orgRepo, logger)
	orgResolver := org.NewContextResolver(orgValidation, logger)
	orgSvc := org.NewService(orgRepo, authzCache)
	orgHandler := org.NewHandler(orgSvc, orgValidation)

	guard := middleware.NewGuard(
		authzCache,
		orgResolver,
		cfg.Authz.FailClosed,
		logger,
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, authzCache)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	provisioner := auth.NewProvisioner(db.DB)
	authSvc := auth.NewService(
		authRepo,
		jwtManager,
		userSvc,
		provisioner,
		redis.Client,
	)
	authHandler := auth.NewHandler(authSvc)

	rbacRepo := rbac.NewRepository(db.DB)
	rbacSvc := rbac.NewService(rbacRepo, authzCache, logger)
	rbacHandler := rbac.NewHandler(rbacSvc)

	farmRepo := farm.NewRepository(db.DB)
	farmSvc := farm.NewService(farmRepo)
	farmHandler := farm.NewHandler(farmSvc)

	healthHandler := health.NewHandler(db, redis)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		SweepCache: authzCache.Sweep,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	platformAdmin := guard.PlatformAdmin()

	tieredLimiter := middleware.TieredRateLimiter(
		redis.Client,
		middleware.DefaultTiers,
		guard.TierFunc(),
	)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(tieredLimiter)

			userHandler.RegisterRoutes(r, authenticator, guard)
			rbacHandler.RegisterRoutes(r, authenticator, guard)
			farmHandler.RegisterRoutes(r, authenticator, guard)
		})

		orgHandler.RegisterRoutes(r, authenticator, platformAdmin)
		adminHandler.RegisterRoutes(r, authenticator, platformAdmin)
	})

	janitor := jobs.NewJanitor(cfg.Jobs, authzCache, rbacSvc, authRepo, logger)
	if err := janitor.Start(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	janitor.Stop()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
