package core

// scheduler.go runs batch syncs on a fixed interval for long-running servers.
//
// Each cycle is an ordinary SyncAll, so it shares the single-sync lock with
// syncs triggered over HTTP. A cycle that finds a sync already running is
// skipped rather than queued. Failures are logged and never stop the loop.

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/logging"
)

// ScheduleConfig controls the background sync loop.
type ScheduleConfig struct {
	Interval time.Duration // Time between cycles; zero disables the scheduler
	Timeout  time.Duration // Upper bound for one cycle
}

// StartScheduler syncs all sources immediately and then every Interval
// until ctx is cancelled. It blocks, so callers run it in a goroutine.
func (s *Service) StartScheduler(ctx context.Context, sources []config.Source, cfg ScheduleConfig) {
	logger := logging.FromContext(ctx)
	if cfg.Interval <= 0 {
		logger.Info("sync scheduler disabled")
		return
	}

	logger.Info("sync scheduler started",
		"interval", cfg.Interval,
		"universities", len(sources),
	)

	s.runScheduledSync(ctx, sources, cfg.Timeout)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduledSync(ctx, sources, cfg.Timeout)
		}
	}
}

// runScheduledSync performs one batch cycle.
func (s *Service) runScheduledSync(ctx context.Context, sources []config.Source, timeout time.Duration) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger := logging.FromContext(ctx)

	report, err := s.SyncAll(ctx, sources)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		logger.Info("scheduled sync skipped, another sync is running")
	case err != nil:
		logger.Error("scheduled sync failed",
			"error", err,
			"code", MapError(err).Code,
			"batch_id", report.BatchID,
		)
	default:
		logger.Info("scheduled sync completed",
			"batch_id", report.BatchID,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
		)
	}
}
