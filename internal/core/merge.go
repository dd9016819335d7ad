package core

// merge.go projects staging into the production tables.
//
// Every staging row is pushed regardless of fingerprints: a missing
// production row is inserted and an existing one has its mutable fields
// overwritten. Natural key fields are never rewritten.

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/admissions/internal/logging"
)

// Merger copies staging rows into production.
type Merger struct {
	store Store
}

// NewMerger creates a Merger.
func NewMerger(store Store) *Merger {
	return &Merger{store: store}
}

// MergeMajors upserts every staged major into majors by (code, university).
func (m *Merger) MergeMajors(ctx context.Context) (MergeCounts, error) {
	var counts MergeCounts

	err := m.store.InTx(ctx, func(q Queries) error {
		counts = MergeCounts{}

		staged, err := q.ListStagedMajors(ctx)
		if err != nil {
			return fmt.Errorf("list staged majors: %w", err)
		}

		for _, s := range staged {
			row := ProductionMajor{
				Code:            s.Code,
				Name:            s.Name,
				FieldOfStudy:    s.FieldOfStudy,
				EnrollmentQuota: s.EnrollmentQuota,
				UniversityID:    s.UniversityID,
			}

			existing, err := q.FindMajor(ctx, s.Code, s.UniversityID)
			if err != nil {
				return fmt.Errorf("find major %s: %w", s.Code, err)
			}

			if existing == nil {
				if _, err := q.InsertMajor(ctx, row); err != nil {
					return fmt.Errorf("insert major %s: %w", s.Code, err)
				}
				counts.New++
				continue
			}

			if err := q.UpdateMajor(ctx, existing.ID, row); err != nil {
				return fmt.Errorf("update major %s: %w", s.Code, err)
			}
			counts.Updated++
		}
		return nil
	})
	if err != nil {
		return MergeCounts{}, err
	}

	logging.FromContext(ctx).Info("merged majors", "new", counts.New, "updated", counts.Updated)
	return counts, nil
}

// MergeRequirements upserts every staged requirement into admission_requirements.
//
// The production major is found by code alone, not scoped to a university,
// so the first major with a matching code wins.
func (m *Merger) MergeRequirements(ctx context.Context) (MergeCounts, error) {
	var counts MergeCounts

	err := m.store.InTx(ctx, func(q Queries) error {
		counts = MergeCounts{}

		staged, err := q.ListStagedRequirements(ctx)
		if err != nil {
			return fmt.Errorf("list staged requirements: %w", err)
		}

		for _, s := range staged {
			majorID, ok, err := q.FindMajorIDByCode(ctx, s.MajorCode)
			if err != nil {
				return fmt.Errorf("find major %s: %w", s.MajorCode, err)
			}
			if !ok {
				counts.Skipped++
				logging.FromContext(ctx).Warn("requirement skipped: major not in production",
					"major_code", s.MajorCode,
					"staged_requirement_id", s.ID,
				)
				continue
			}

			row := ProductionRequirement{
				MajorID:            majorID,
				ExamKind:           s.ExamKind,
				Score:              s.Score,
				SubjectCombination: s.SubjectCombination,
				Year:               s.Year,
			}
			key := RequirementKey{
				MajorID:            majorID,
				ExamKind:           s.ExamKind,
				Year:               s.Year,
				SubjectCombination: s.SubjectCombination,
			}

			existing, err := q.FindRequirement(ctx, key)
			if err != nil {
				return fmt.Errorf("find requirement %s: %w", s.MajorCode, err)
			}

			if existing == nil {
				if _, err := q.InsertRequirement(ctx, row); err != nil {
					return fmt.Errorf("insert requirement %s: %w", s.MajorCode, err)
				}
				counts.New++
				continue
			}

			if err := q.UpdateRequirement(ctx, existing.ID, row); err != nil {
				return fmt.Errorf("update requirement %s: %w", s.MajorCode, err)
			}
			counts.Updated++
		}
		return nil
	})
	if err != nil {
		return MergeCounts{}, err
	}

	logging.FromContext(ctx).Info("merged requirements",
		"new", counts.New,
		"updated", counts.Updated,
		"skipped", counts.Skipped,
	)
	return counts, nil
}
