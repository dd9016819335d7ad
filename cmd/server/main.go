package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/JonMunkholm/admissions/internal/database"
	"github.com/JonMunkholm/admissions/internal/logging"
	"github.com/JonMunkholm/admissions/internal/sheets"
	"github.com/JonMunkholm/admissions/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"sync_source", cfg.Sync.Source,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	sources, err := config.LoadSources(cfg.Sync.SourcesFile)
	if err != nil {
		slog.Error("failed to load sources", "file", cfg.Sync.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("sources loaded", "count", len(sources))

	ctx := context.Background()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	source, err := sheets.NewSource(ctx, cfg)
	if err != nil {
		slog.Error("failed to create sheet source", "error", err)
		os.Exit(1)
	}

	service := core.NewService(database.NewStore(pool), source, cfg.Sync)
	server := web.NewServer(service, sources, cfg)

	// Background syncs stop with the server
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartScheduler(jobCtx, sources, core.ScheduleConfig{
		Interval: cfg.Sync.Interval,
		Timeout:  cfg.Sync.Timeout,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
