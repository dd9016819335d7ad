// Command sync runs one batch of spreadsheet syncs and exits.
//
// Exit status is 0 when every university succeeded, 1 when the run could
// not start and 2 when at least one university failed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/JonMunkholm/admissions/internal/database"
	"github.com/JonMunkholm/admissions/internal/logging"
	"github.com/JonMunkholm/admissions/internal/sheets"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	dryRun := flag.Bool("dry-run", false, "fetch and parse only, write nothing")
	university := flag.String("university", "", "sync a single university code")
	flag.Parse()

	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	sources, err := config.LoadSources(cfg.Sync.SourcesFile)
	if err != nil {
		slog.Error("failed to load sources", "file", cfg.Sync.SourcesFile, "error", err)
		return 1
	}
	if *university != "" {
		src, ok := config.FindSource(sources, *university)
		if !ok {
			slog.Error("university not in sources file", "university", *university)
			return 1
		}
		sources = []config.Source{src}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Sync.Timeout)
	defer cancel()

	if cfg.Database.Migrate && !*dryRun {
		if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
			slog.Error("failed to migrate database", "error", err)
			return 1
		}
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err, "message", core.FormatUserError(err))
		return 1
	}
	defer pool.Close()

	source, err := sheets.NewSource(ctx, cfg)
	if err != nil {
		slog.Error("failed to create sheet source", "error", err)
		return 1
	}

	service := core.NewService(database.NewStore(pool), source, cfg.Sync)

	if *dryRun {
		return preview(ctx, service, sources)
	}

	report, err := service.SyncAll(ctx, sources)
	if report.BatchID != "" {
		printJSON(report)
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("sync did not run", "error", err, "message", core.FormatUserError(err))
		return 1
	}
	if err != nil || report.Failed > 0 {
		return 2
	}
	return 0
}

// preview prints parse statistics per university without writing.
func preview(ctx context.Context, service *core.Service, sources []config.Source) int {
	type previewLine struct {
		UniversityCode string          `json:"universityCode"`
		Stats          core.ParseStats `json:"stats"`
		Error          string          `json:"error,omitempty"`
		ErrorCode      string          `json:"errorCode,omitempty"`
	}

	status := 0
	lines := make([]previewLine, 0, len(sources))
	for _, src := range sources {
		result, err := service.Preview(ctx, src)
		line := previewLine{UniversityCode: src.UniversityCode, Stats: result.Stats}
		if err != nil {
			line.Error = err.Error()
			line.ErrorCode = core.MapError(err).Code
			status = 2
		}
		lines = append(lines, line)
	}
	printJSON(lines)
	return status
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode report:", err)
	}
}
