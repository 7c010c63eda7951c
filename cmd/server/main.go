// Package main is the entrypoint for the BrandLens API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/brandlens/internal/ai/registry"
	"github.com/kiranshivaraju/brandlens/internal/analytics"
	"github.com/kiranshivaraju/brandlens/internal/api"
	"github.com/kiranshivaraju/brandlens/internal/api/handler"
	mw "github.com/kiranshivaraju/brandlens/internal/api/middleware"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/internal/cache"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/kiranshivaraju/brandlens/internal/detection"
	"github.com/kiranshivaraju/brandlens/internal/metrics"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 30 * time.Second

// bootstrapUserID owns the key installed from BRANDLENS_BOOTSTRAP_ADMIN_KEY.
var bootstrapUserID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("brandlens:bootstrap-admin"))

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run() error {
	// 1. Load .env if present, then config; fail fast on invalid config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("config loaded", "ai_providers", cfg.AI.Providers, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create LLM providers
	providers, err := registry.New(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI providers: %w", err)
	}
	slog.Info("AI providers initialized", "providers", providers.Names())

	// 6. Create store, metrics and services
	pgStore := store.NewPostgresStore(pool)

	if err := ensureBootstrapKey(ctx, pgStore, cfg.Server.BootstrapAdminKey); err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

	m, err := metrics.NewDefault()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	detector := detection.NewService(providers, pgStore, redisCache, m,
		detection.OptionsFromConfig(cfg.AI, cfg.Detection))
	stats := analytics.NewService(pgStore, redisCache, cfg.Analytics.CacheTTL)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute),
		Metrics:   m,

		HealthHandler:     healthHandler(pgStore, redisCache, providers.Names()),
		DetectHandler:     handler.NewDetectHandler(detector, pgStore),
		ListChecks:        handler.NewListChecksHandler(pgStore),
		GetCheck:          handler.NewGetCheckHandler(pgStore),
		CheckStatus:       handler.NewCheckStatusHandler(detector),
		BrandStatsHandler: handler.NewBrandStatsHandler(stats),
		CompareHandler:    handler.NewCompareHandler(stats),
		CreateTemplate:    handler.NewCreateTemplateHandler(pgStore),
		ListTemplates:     handler.NewListTemplatesHandler(pgStore),
		UseTemplate:       handler.NewUseTemplateHandler(pgStore),
		CreateKeyHandler:  handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:   handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:  handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server. WriteTimeout leaves room for a full check.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.RequestTimeout*time.Duration(detection.MaxProviders) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// keyInstaller is the store subset ensureBootstrapKey needs.
type keyInstaller interface {
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

// ensureBootstrapKey installs rawKey as an admin key unless it already exists.
func ensureBootstrapKey(ctx context.Context, s keyInstaller, rawKey string) error {
	if rawKey == "" {
		return nil
	}
	existing, err := s.GetAPIKeyByPrefix(ctx, rawKey[:mw.KeyPrefixLen])
	if err != nil {
		return err
	}
	for _, k := range existing {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(rawKey)) == nil {
			return nil
		}
	}

	key, err := handler.NewAPIKey(rawKey, "bootstrap-admin", bootstrapUserID, []string{mw.ScopeAdmin})
	if err != nil {
		return err
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		return err
	}
	slog.Info("bootstrap admin key installed", "key_prefix", key.KeyPrefix, "user_id", key.UserID)
	return nil
}

// healthHandler checks database and cache connectivity and lists the
// configured providers.
func healthHandler(s pinger, c pinger, providers []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":    "ok",
			"services":  checks,
			"providers": providers,
		})
	}
}
