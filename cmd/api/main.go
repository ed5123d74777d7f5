// Package main is the entrypoint for the Draftline API server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/draftline/draftline/internal/activity"
	"github.com/draftline/draftline/internal/auth"
	"github.com/draftline/draftline/internal/cache"
	"github.com/draftline/draftline/internal/config"
	"github.com/draftline/draftline/internal/handler"
	"github.com/draftline/draftline/internal/metrics"
	"github.com/draftline/draftline/internal/middleware"
	"github.com/draftline/draftline/internal/repository"
	"github.com/draftline/draftline/internal/server"
	"github.com/draftline/draftline/internal/service"
	"github.com/draftline/draftline/internal/webhook"
	"github.com/draftline/draftline/migrations"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// The webhook dispatcher keeps its own database/sql handle so its
	// row-locking poll loop stays independent of the API pool.
	webhookDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open webhook database handle",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer webhookDB.Close()
	webhookDB.SetMaxOpenConns(5)

	if err := runMigrations(ctx, webhookDB); err != nil {
		logger.Error("failed to apply migrations",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	webhookRepo := webhook.NewRepository(webhookDB)
	webhookPublisher := webhook.NewPublisher(webhookRepo, logger)
	activityPublisher := activity.NewPublisher(cacheClient.Client(), logger, recorder)

	userService := service.NewUserService(repo, tokens)
	paperService := service.NewPaperService(repo, cacheClient, webhookPublisher, activityPublisher, recorder)
	adminService := service.NewAdminService(repo)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(userService, logger)
	paperHandler := handler.NewPaperHandler(paperService, logger)
	webhookHandler := handler.NewWebhookHandler(webhookRepo, logger)
	adminHandler := handler.NewAdminHandler(adminService, recorder, logger)

	r := setupRouter(routerDeps{
		base:     h,
		health:   healthHandler,
		auth:     authHandler,
		papers:   paperHandler,
		webhooks: webhookHandler,
		admin:    adminHandler,
		tokens:   tokens,
		cache:    cacheClient,
		cfg:      cfg,
		logger:   logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	startWorkers(ctx, srv, cfg, webhookRepo, cacheClient, repo, recorder, logger)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runMigrations brings the schema up to date with the embedded goose
// migrations.
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// startWorkers launches the background workers enabled in config and
// registers their shutdown hooks.
func startWorkers(
	ctx context.Context,
	srv *server.Server,
	cfg *config.Config,
	webhookRepo *webhook.Repository,
	cacheClient *cache.Cache,
	repo *repository.Repository,
	recorder metrics.Recorder,
	logger *slog.Logger,
) {
	if cfg.WebhookWorkerEnabled {
		worker := webhook.NewWorker(webhookRepo, logger, recorder)
		workerCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := worker.Run(workerCtx); err != nil && err != context.Canceled {
				logger.Error("webhook worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("webhook-worker", func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	if cfg.ActivityWorkerEnabled {
		worker := activity.NewWorker(cacheClient.Client(), repo, logger, recorder)
		go worker.Run(ctx)
		srv.OnShutdown("activity-worker", worker.Shutdown)
	}
}

type routerDeps struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	auth     *handler.AuthHandler
	papers   *handler.PaperHandler
	webhooks *handler.WebhookHandler
	admin    *handler.AdminHandler
	tokens   *auth.TokenIssuer
	cache    *cache.Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      deps.cfg.IsDevelopment(),
		MaxRequestBodySize: deps.cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))

	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)
	r.Get("/", deps.base.Hello)

	authCfg := middleware.AuthConfig{
		Logger: deps.logger,
		Tokens: deps.tokens,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  deps.logger,
		Cache:   deps.cache,
		Enabled: deps.cfg.RateLimitAuthEnabled,
		RPM:     deps.cfg.RateLimitAuthRPM,
		Burst:   deps.cfg.RateLimitAuthBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints are rate limited per IP, no auth.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitAuth(rateLimitCfg))
			r.Post("/auth/register", deps.auth.Register)
			r.Post("/auth/login", deps.auth.Login)
		})

		// Everything else requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))

			r.Get("/auth/me", deps.auth.Me)

			r.Route("/papers", func(r chi.Router) {
				r.Post("/", deps.papers.Create)
				r.Get("/", deps.papers.List)
				r.Get("/{id}", deps.papers.Get)
				r.Put("/{id}", deps.papers.Update)
				r.Delete("/{id}", deps.papers.Delete)
				r.Get("/{id}/progress", deps.papers.Progress)
			})

			r.Route("/webhooks", func(r chi.Router) {
				r.Post("/", deps.webhooks.Create)
				r.Get("/", deps.webhooks.List)
				r.Get("/{id}", deps.webhooks.Get)
				r.Patch("/{id}", deps.webhooks.Update)
				r.Delete("/{id}", deps.webhooks.Delete)
				r.Get("/{id}/deliveries", deps.webhooks.Deliveries)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/stats", deps.admin.Stats)
				r.Get("/metrics", deps.admin.Metrics)
			})
		})
	})

	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
