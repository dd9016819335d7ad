package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/admissions/internal/logging"
	"github.com/google/uuid"
)

// RunStatus is the final state of a recorded university sync.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Limits for RecentRuns.
const (
	DefaultRunsLimit = 50
	MaxRunsLimit     = 500
)

// SyncRun is one row of sync history.
type SyncRun struct {
	ID             uuid.UUID  `json:"id"`
	BatchID        uuid.UUID  `json:"batchId"`
	UniversityCode string     `json:"universityCode"`
	SpreadsheetID  string     `json:"spreadsheetId"`
	Status         RunStatus  `json:"status"`
	Phase          SyncPhase  `json:"phase"`
	ErrorCode      string     `json:"errorCode,omitempty"`
	Error          string     `json:"error,omitempty"`
	Summary        RunSummary `json:"summary"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     time.Time  `json:"finishedAt"`
}

func newSyncRun(batchID uuid.UUID, report UniversityReport, startedAt time.Time) SyncRun {
	status := RunSucceeded
	if !report.Success {
		status = RunFailed
	}
	return SyncRun{
		ID:             uuid.New(),
		BatchID:        batchID,
		UniversityCode: report.UniversityCode,
		SpreadsheetID:  report.SpreadsheetID,
		Status:         status,
		Phase:          report.Phase,
		ErrorCode:      report.ErrorCode,
		Error:          report.Error,
		Summary:        report.RunSummary,
		StartedAt:      startedAt,
		FinishedAt:     startedAt.Add(report.Duration),
	}
}

// recordRun stores run history. History is best effort: a failed write is
// logged and never changes the outcome of the sync it describes.
func (s *Service) recordRun(ctx context.Context, run SyncRun) {
	if err := s.store.RecordRun(ctx, run); err != nil {
		logging.FromContext(ctx).Warn("failed to record sync run",
			"run_id", run.ID,
			"university", run.UniversityCode,
			"error", err,
		)
	}
}

// RecentRuns returns sync history, newest first. A non-positive limit uses
// DefaultRunsLimit and larger limits are capped at MaxRunsLimit.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	switch {
	case limit <= 0:
		limit = DefaultRunsLimit
	case limit > MaxRunsLimit:
		limit = MaxRunsLimit
	}
	return s.store.RecentRuns(ctx, limit)
}
