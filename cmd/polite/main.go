// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/polite/internal/cipher"
	"github.com/olegiv/polite/internal/config"
	"github.com/olegiv/polite/internal/handler/api"
	"github.com/olegiv/polite/internal/logging"
	"github.com/olegiv/polite/internal/metrics"
	"github.com/olegiv/polite/internal/middleware"
	"github.com/olegiv/polite/internal/model"
	"github.com/olegiv/polite/internal/rephrase"
	"github.com/olegiv/polite/internal/scheduler"
	"github.com/olegiv/polite/internal/service"
	"github.com/olegiv/polite/internal/store"
	"github.com/olegiv/polite/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "polite - tone rephrasing assistant server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_DB_PATH            SQLite database path (default: ./data/usage.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_SERVER_PORT        Server port (default: 5000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_REPHRASE_PROVIDER  http|openai (default: http)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_REPHRASE_URL       Upstream rephrase service (default: http://localhost:8000/rephrase)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_OPENAI_API_KEY     API key for the openai provider\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_ENCRYPTION_KEY     Secret for /encrypt (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  POLITE_ENV                development|production (default: development)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Printf("polite %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath, "driver", cfg.DBDriver)
	dbCfg := store.DefaultDBConfig()
	dbCfg.Driver = cfg.DBDriver
	db, err := store.NewDBWithConfig(cfg.DBPath, dbCfg)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	m := metrics.New(prometheus.DefaultRegisterer)

	var provider rephrase.Provider
	switch cfg.RephraseProvider {
	case config.ProviderOpenAI:
		provider = rephrase.NewOpenAIProvider(rephrase.OpenAIConfig{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.OpenAIBaseURL,
			ClassifyModel: cfg.OpenAIModel,
			RewriteModel:  cfg.OpenAIRewriteModel,
		})
		slog.Info("rephrase provider", "provider", "openai", "model", cfg.OpenAIModel)
	default:
		provider = rephrase.NewHTTPProvider(cfg.RephraseURL, cfg.RephraseTimeout)
		slog.Info("rephrase provider", "provider", "http", "url", cfg.RephraseURL)
	}

	var msgCipher *cipher.Cipher
	if cfg.EncryptionEnabled() {
		msgCipher, err = cipher.New(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("initializing cipher: %w", err)
		}
	}

	usageStore := store.NewUsageStore(db)
	eventService := service.NewEventService(db)

	apiHandler := api.NewHandler(api.Deps{
		Rephraser: rephrase.NewGateway(provider, logger, m),
		Usage:     service.NewUsageRecorder(usageStore, logger, m),
		Stats:     usageStore,
		Encryptor: service.NewEncryptionService(db, msgCipher, logger, m),
		Logger:    logger,
		Version:   versionInfo.Short(),
	})

	if cfg.DigestEnabled {
		sched := scheduler.New(usageStore, eventService, logger, cfg.DigestSchedule)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	securityConfig.ExcludePaths = []string{"/metrics"}
	r.Use(middleware.SecurityHeaders(securityConfig))
	r.Use(middleware.Instrument(m))
	r.Use(middleware.Timeout(30 * time.Second))

	rephraseLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	apiHandler.Mount(r, rephraseLimiter.Middleware())
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	if err := eventService.LogInfo(context.Background(), model.EventCategorySystem, "Server started", map[string]any{
		"version":  versionInfo.Short(),
		"provider": cfg.RephraseProvider,
		"addr":     cfg.ServerAddr(),
	}); err != nil {
		slog.Warn("failed to log startup event", "error", err)
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
