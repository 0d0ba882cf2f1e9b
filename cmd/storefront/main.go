// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-storefront/internal/auth"
	"github.com/olegiv/ocms-storefront/internal/cache"
	"github.com/olegiv/ocms-storefront/internal/catalog"
	"github.com/olegiv/ocms-storefront/internal/config"
	"github.com/olegiv/ocms-storefront/internal/handler"
	"github.com/olegiv/ocms-storefront/internal/logging"
	"github.com/olegiv/ocms-storefront/internal/middleware"
	"github.com/olegiv/ocms-storefront/internal/model"
	"github.com/olegiv/ocms-storefront/internal/render"
	"github.com/olegiv/ocms-storefront/internal/rpc"
	"github.com/olegiv/ocms-storefront/internal/scheduler"
	"github.com/olegiv/ocms-storefront/internal/session"
	"github.com/olegiv/ocms-storefront/internal/store"
	"github.com/olegiv/ocms-storefront/internal/version"
	"github.com/olegiv/ocms-storefront/web"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "storefront - catalog and account pages backed by the CMS\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STOREFRONT_SESSION_SECRET  Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STOREFRONT_DB_PATH         SQLite database path (default: ./data/storefront.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STOREFRONT_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STOREFRONT_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STOREFRONT_REDIS_URL       Redis URL for the shared query cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STOREFRONT_DO_SEED         Insert the demo catalog on startup (default: false)\n")
	}
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("storefront %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(logging.NewRequestHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))
	slog.SetDefault(logger)
	slog.Info("starting storefront", "version", version.Get().Version, "env", cfg.Env)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	issuer, err := auth.NewTokenIssuer(cfg.SessionSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	backend := store.NewBackend(db, issuer, cfg.CookiePrefix)

	queryCache := cache.New(ctx, cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() { _ = queryCache.Close() }()
	slog.Info("query cache ready", "redis", cfg.UseRedisCache(), "ttl", cfg.CacheTTLDuration())

	router := rpc.New(backend, rpc.Options{
		DefaultLimit:  cfg.DefaultLimit,
		SecureCookies: !cfg.IsDevelopment(),
		Logger:        logger,
	})

	assembler := catalog.NewAssembler(router, queryCache, cfg.CacheTTLDuration())
	if cfg.DoSeed {
		// A shared Redis cache may hold listings from before the seed.
		if err := assembler.InvalidateProducts(ctx); err != nil {
			slog.Warn("invalidating cached listings", "error", err)
		}
	}
	if err := assembler.WarmCategories(ctx); err != nil {
		slog.Warn("warming category cache", "error", err)
	}

	sessionManager := session.New(db, cfg.IsDevelopment())

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	storefront := handler.NewStorefront(handler.Config{
		Router:         router,
		Assembler:      assembler,
		Renderer:       renderer,
		SessionManager: sessionManager,
		Logger:         logger,
	})
	healthHandler := handler.NewHealthHandler(db, queryCache)

	formLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	apiLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	sched := scheduler.New(logger, time.Minute)
	if err := sched.Add("warm-categories", "@every 10m", assembler.WarmCategories); err != nil {
		return fmt.Errorf("scheduling category warm-up: %w", err)
	}
	if err := sched.Add("prune-rate-limiters", "@every 5m", func(ctx context.Context) error {
		return errors.Join(formLimiter.Prune(ctx), apiLimiter.Prune(ctx))
	}); err != nil {
		return fmt.Errorf("scheduling rate limiter pruning: %w", err)
	}
	if sp, ok := queryCache.(cache.StatsProvider); ok {
		// Daily counters keep the health check's hit rate recent.
		if err := sched.Add("reset-cache-stats", "@daily", func(context.Context) error {
			sp.ResetStats()
			return nil
		}); err != nil {
			return fmt.Errorf("scheduling cache stats reset: %w", err)
		}
	}
	sched.Start()

	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())))

	r.Get("/healthz", healthHandler.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	r.Get("/api/dropdown-position", handler.DropdownPosition)

	r.Route("/api/trpc", func(r chi.Router) {
		r.Use(apiLimiter.JSONMiddleware())
		r.Mount("/", router.Handler())
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.LoadSession(func(req *http.Request) (model.Session, error) {
			return router.Session(req.Context(), &rpc.Meta{Header: req.Header}, struct{}{})
		}))
		r.Use(formLimiter.HTMLMiddleware())
		storefront.Routes(r)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
