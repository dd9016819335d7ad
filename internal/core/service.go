package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/logging"
	"github.com/google/uuid"
)

// Service runs the sheet-to-database pipeline.
//
// Per university the stages are strictly ordered: resolve university,
// fetch grid, parse, stage majors, stage requirements, merge majors,
// merge requirements. Only one sync runs at a time per Service.
type Service struct {
	store      Store
	source     GridSource
	parser     *Parser
	reconciler *Reconciler
	merger     *Merger
	now        func() time.Time

	mu sync.Mutex
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for timestamps and durations.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithCombinations replaces the subject combination table.
func WithCombinations(table CombinationTable) ServiceOption {
	return func(s *Service) {
		cfg := s.parser.cfg
		cfg.Combinations = table
		s.parser = NewParser(cfg)
	}
}

// NewService creates a Service reading grids from source and writing to store.
func NewService(store Store, source GridSource, cfg config.SyncConfig, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		source: source,
		parser: NewParser(ParserConfig{
			Combinations: DefaultCombinations(),
			DefaultYear:  cfg.DefaultYear,
		}),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = NewReconciler(store, s.now)
	s.merger = NewMerger(store)
	return s
}

// Ping checks the store, wrapping failures in ErrStoreUnavailable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// SyncAll syncs every source in order. A failing university is reported
// and the batch moves on to the next one. Cancellation of ctx stops the
// batch after the university in progress.
func (s *Service) SyncAll(ctx context.Context, sources []config.Source) (BatchReport, error) {
	if !s.mu.TryLock() {
		return BatchReport{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	if err := s.Ping(ctx); err != nil {
		return BatchReport{}, err
	}

	batchID := uuid.New()
	ctx = logging.NewContext(ctx, logging.WithFields(ctx, "batch_id", batchID.String()))
	logger := logging.FromContext(ctx)

	start := s.now()
	report := BatchReport{BatchID: batchID.String()}
	logger.Info("batch sync started", "universities", len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			report.Duration = s.now().Sub(start)
			logger.Warn("batch sync stopped", "error", err, "remaining", len(sources)-len(report.Universities))
			return report, err
		}

		ur, _ := s.syncAndRecord(ctx, batchID, src)
		report.Universities = append(report.Universities, ur)
		if ur.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	report.Duration = s.now().Sub(start)
	logger.Info("batch sync finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report, nil
}

// SyncOne syncs the single source configured for universityCode.
func (s *Service) SyncOne(ctx context.Context, sources []config.Source, universityCode string) (UniversityReport, error) {
	src, ok := config.FindSource(sources, universityCode)
	if !ok {
		return UniversityReport{}, fmt.Errorf("%w: %s", ErrUnknownSource, universityCode)
	}

	if !s.mu.TryLock() {
		return UniversityReport{}, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	if err := s.Ping(ctx); err != nil {
		return UniversityReport{}, err
	}

	return s.syncAndRecord(ctx, uuid.New(), src)
}

func (s *Service) syncAndRecord(ctx context.Context, batchID uuid.UUID, src config.Source) (UniversityReport, error) {
	started := s.now()
	report, err := s.SyncUniversity(ctx, src)
	s.recordRun(ctx, newSyncRun(batchID, report, started))
	return report, err
}

// SyncUniversity runs the full pipeline for one spreadsheet.
//
// The returned report is always populated: on failure Phase names the
// stage that failed and stages before it remain committed. Panics inside
// the pipeline are recovered and reported as failures.
func (s *Service) SyncUniversity(ctx context.Context, src config.Source) (report UniversityReport, err error) {
	runID := uuid.NewString()
	ctx = logging.NewContext(ctx, logging.WithFields(ctx,
		"run_id", runID,
		"university", src.UniversityCode,
		"spreadsheet_id", src.SpreadsheetID,
	))
	logger := logging.FromContext(ctx)

	start := s.now()
	report = UniversityReport{
		UniversityCode: src.UniversityCode,
		SpreadsheetID:  src.SpreadsheetID,
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", report.Phase, r)
			logger.Error("panic during sync", "phase", report.Phase, "panic", r)
		}

		report.Duration = s.now().Sub(start)
		if err != nil {
			report.Success = false
			report.Error = err.Error()
			report.ErrorCode = MapError(err).Code
			logger.Error("university sync failed",
				"phase", report.Phase,
				"code", report.ErrorCode,
				"error", err,
			)
			return
		}
		report.Success = true
		logger.Info("university sync finished", "duration", report.Duration)
	}()

	err = s.run(ctx, src, &report)
	return report, err
}

func (s *Service) run(ctx context.Context, src config.Source, report *UniversityReport) error {
	result, universityID, err := s.fetchAndParse(ctx, src, report)
	if err != nil {
		return err
	}

	report.Phase = PhaseStagingMajors
	if report.StagedMajors, err = s.reconciler.StageMajors(ctx, result.Majors); err != nil {
		return fmt.Errorf("stage majors: %w", err)
	}

	report.Phase = PhaseStagingReqs
	if report.StagedRequirements, err = s.reconciler.StageRequirements(ctx, universityID, result.Requirements); err != nil {
		return fmt.Errorf("stage requirements: %w", err)
	}

	report.Phase = PhaseMergingMajors
	if report.MergedMajors, err = s.merger.MergeMajors(ctx); err != nil {
		return fmt.Errorf("merge majors: %w", err)
	}

	report.Phase = PhaseMergingReqs
	if report.MergedRequirements, err = s.merger.MergeRequirements(ctx); err != nil {
		return fmt.Errorf("merge requirements: %w", err)
	}

	report.Phase = PhaseComplete
	return nil
}

// fetchAndParse covers the read-only stages shared by sync and preview.
func (s *Service) fetchAndParse(ctx context.Context, src config.Source, report *UniversityReport) (ParseResult, int64, error) {
	logger := logging.FromContext(ctx)

	report.Phase = PhaseResolving
	universityID, err := s.store.UniversityID(ctx, src.UniversityCode)
	if err != nil {
		return ParseResult{}, 0, fmt.Errorf("resolve university %s: %w", src.UniversityCode, err)
	}

	report.Phase = PhaseFetching
	grid, err := s.source.ReadGrid(ctx, src.SpreadsheetID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ParseResult{}, 0, fmt.Errorf("read sheet %s: %w", src.SpreadsheetID, ctxErr)
		}
		return ParseResult{}, 0, fmt.Errorf("read sheet %s: %w: %w", src.SpreadsheetID, ErrSourceUnavailable, err)
	}
	logger.Debug("sheet fetched", "rows", len(grid))

	report.Phase = PhaseParsing
	result := s.parser.Parse(ctx, grid, universityID)
	report.Parse = result.Stats
	logParseStats(logger, result.Stats)

	if len(result.Majors) == 0 {
		return ParseResult{}, 0, ErrNoMajors
	}
	return result, universityID, nil
}

// Preview fetches and parses a sheet without writing anything.
func (s *Service) Preview(ctx context.Context, src config.Source) (ParseResult, error) {
	ctx = logging.NewContext(ctx, logging.WithFields(ctx,
		"university", src.UniversityCode,
		"spreadsheet_id", src.SpreadsheetID,
		"dry_run", true,
	))
	var report UniversityReport
	result, _, err := s.fetchAndParse(ctx, src, &report)
	if err != nil {
		return report.previewResult(), err
	}
	return result, nil
}

// previewResult keeps the parse statistics of a failed preview.
func (r UniversityReport) previewResult() ParseResult {
	return ParseResult{Stats: r.Parse}
}

func logParseStats(logger *slog.Logger, st ParseStats) {
	logger.Info("sheet parsed",
		"data_rows", st.DataRows,
		"majors", st.Majors,
		"requirements", st.Requirements,
		"aptitude_scores", st.AptitudeScores,
		"national_scores", st.NationalScores,
		"missing_required", st.MissingRequired,
		"invalid_values", st.InvalidValue,
		"invalid_scores", st.InvalidScores,
	)
}
