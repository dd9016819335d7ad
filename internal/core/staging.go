package core

// staging.go reconciles parsed records against the staging tables.
//
// Each record is looked up by natural key and its fingerprint compared:
//   - no row            -> insert (new)
//   - fingerprint differs -> update in place (updated)
//   - fingerprint equal   -> no write (unchanged)
//
// Majors and requirements are reconciled in separate transactions. The
// requirements pass reads staging majors once at its start, so majors
// inserted by the majors pass of the same run are visible to it.

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/admissions/internal/fingerprint"
	"github.com/JonMunkholm/admissions/internal/logging"
)

// Reconciler writes parsed records into staging with change detection.
type Reconciler struct {
	store Store
	now   func() time.Time
}

// NewReconciler creates a Reconciler. A nil now uses time.Now().UTC().
func NewReconciler(store Store, now func() time.Time) *Reconciler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Reconciler{store: store, now: now}
}

// StageMajors upserts majors into staging_majors keyed by (code, university).
func (r *Reconciler) StageMajors(ctx context.Context, majors []Major) (StageCounts, error) {
	var counts StageCounts

	err := r.store.InTx(ctx, func(q Queries) error {
		counts = StageCounts{}
		for _, m := range majors {
			if m.Fingerprint == "" {
				m.Fingerprint = m.ComputeFingerprint()
			}

			existing, err := q.FindStagedMajor(ctx, m.Code, m.UniversityID)
			if err != nil {
				return fmt.Errorf("find staged major %s: %w", m.Code, err)
			}

			switch {
			case existing == nil:
				if _, err := q.InsertStagedMajor(ctx, m, r.now()); err != nil {
					return fmt.Errorf("insert staged major %s: %w", m.Code, err)
				}
				counts.New++
			case fingerprint.HasChanged(existing.Fingerprint, m.Fingerprint):
				if err := q.UpdateStagedMajor(ctx, existing.ID, m, r.now()); err != nil {
					return fmt.Errorf("update staged major %s: %w", m.Code, err)
				}
				counts.Updated++
			default:
				counts.Unchanged++
			}
		}
		return nil
	})
	if err != nil {
		return StageCounts{}, err
	}

	logging.FromContext(ctx).Info("staged majors",
		"new", counts.New,
		"updated", counts.Updated,
		"unchanged", counts.Unchanged,
	)
	return counts, nil
}

// StageRequirements upserts requirements into staging_admission_requirements.
// Major codes are resolved against the university's staged majors; a
// requirement whose major is not staged is skipped and counted.
func (r *Reconciler) StageRequirements(ctx context.Context, universityID int64, reqs []AdmissionRequirement) (StageCounts, error) {
	var counts StageCounts

	err := r.store.InTx(ctx, func(q Queries) error {
		counts = StageCounts{}

		staged, err := q.ListStagedMajorsByUniversity(ctx, universityID)
		if err != nil {
			return fmt.Errorf("list staged majors: %w", err)
		}
		majorIDs := make(map[string]int64, len(staged))
		for _, m := range staged {
			majorIDs[m.Code] = m.ID
		}

		for _, req := range reqs {
			if req.Fingerprint == "" {
				req.Fingerprint = req.ComputeFingerprint()
			}

			majorID, ok := majorIDs[req.MajorCode]
			if !ok {
				counts.Skipped++
				logging.FromContext(ctx).Warn("requirement skipped: major not staged",
					"major_code", req.MajorCode,
					"exam_kind", req.ExamKind.String(),
					"university_id", universityID,
				)
				continue
			}

			key := RequirementKey{
				MajorID:            majorID,
				ExamKind:           req.ExamKind,
				Year:               req.Year,
				SubjectCombination: req.SubjectCombination,
			}

			existing, err := q.FindStagedRequirement(ctx, key)
			if err != nil {
				return fmt.Errorf("find staged requirement %s: %w", req.MajorCode, err)
			}

			switch {
			case existing == nil:
				if _, err := q.InsertStagedRequirement(ctx, key, req, r.now()); err != nil {
					return fmt.Errorf("insert staged requirement %s: %w", req.MajorCode, err)
				}
				counts.New++
			case fingerprint.HasChanged(existing.Fingerprint, req.Fingerprint):
				if err := q.UpdateStagedRequirement(ctx, existing.ID, req, r.now()); err != nil {
					return fmt.Errorf("update staged requirement %s: %w", req.MajorCode, err)
				}
				counts.Updated++
			default:
				counts.Unchanged++
			}
		}
		return nil
	})
	if err != nil {
		return StageCounts{}, err
	}

	logging.FromContext(ctx).Info("staged requirements",
		"new", counts.New,
		"updated", counts.Updated,
		"unchanged", counts.Unchanged,
		"skipped", counts.Skipped,
	)
	return counts, nil
}
