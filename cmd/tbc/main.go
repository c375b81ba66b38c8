// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command tbc runs the magazine CMS server: a public JSON API for
// article browsing and a session-authenticated admin API for authoring.
package main

import (
	"context"
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

	"github.com/joho/godotenv"

	"github.com/sarmadcodes/tbc/internal/cache"
	"github.com/sarmadcodes/tbc/internal/config"
	"github.com/sarmadcodes/tbc/internal/handler"
	"github.com/sarmadcodes/tbc/internal/logging"
	"github.com/sarmadcodes/tbc/internal/middleware"
	"github.com/sarmadcodes/tbc/internal/scheduler"
	"github.com/sarmadcodes/tbc/internal/service"
	"github.com/sarmadcodes/tbc/internal/session"
	"github.com/sarmadcodes/tbc/internal/store"
	"github.com/sarmadcodes/tbc/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Absent .env files are fine; real deployments configure the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	baseHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(baseHandler))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	// Once the events table exists, mirror WARN and above into it.
	slog.SetDefault(slog.New(logging.NewEventLogHandler(baseHandler, db)))
	slog.Info("starting", "version", version.Get().String(), "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.SeedAdmins(ctx, db, cfg.AdminEmails, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seeding admin accounts: %w", err)
	}
	if err := store.SeedDemo(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding demo articles: %w", err)
	}

	queries := store.New(db)
	sessions := session.New(db, cfg.IsDevelopment())

	backend := cache.NewBackend(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:    cfg.CacheSize,
	})
	defer func() { _ = backend.Close() }()
	listCache := cache.NewArticleCache(backend, time.Duration(cfg.CacheTTL)*time.Second)

	mediaService := service.NewMediaService(cfg.UploadsDir, cfg.PublicBaseURL)
	articleService := service.NewArticleService(queries, mediaService, listCache, cfg.DefaultAuthor)
	authService := service.NewAuthService(queries)
	eventService := service.NewEventService(queries)

	sched := scheduler.New(eventService, cfg.EventRetention)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	loginLimiter := middleware.NewLoginLimiter(12*time.Second, 5)

	router := handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Sessions: sessions,
		Queries:  queries,
		Articles: handler.NewArticleHandler(articleService, eventService, cfg.FeaturedLimit),
		Auth:     handler.NewAuthHandler(authService, eventService, sessions, loginLimiter),
		Media:    handler.NewMediaHandler(mediaService, eventService),
		APIKeys:  handler.NewAPIKeyHandler(queries, eventService),
		Events:   handler.NewEventHandler(eventService),
		Health:   handler.NewHealthHandler(db),
	})

	server := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
