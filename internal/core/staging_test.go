package core

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testMajor(code, name string, univ int64) Major {
	m := Major{Code: code, Name: name, FieldOfStudy: UncategorizedField, UniversityID: univ}
	m.Fingerprint = m.ComputeFingerprint()
	return m
}

func testRequirement(code string, kind ExamKind, score float64, combo pgtype.Int4) AdmissionRequirement {
	r := AdmissionRequirement{MajorCode: code, ExamKind: kind, Score: score, SubjectCombination: combo, Year: 2025}
	r.Fingerprint = r.ComputeFingerprint()
	return r
}

func TestStageMajors_InsertUpdateUnchanged(t *testing.T) {
	store := newMemStore(nil)
	rec := NewReconciler(store, fixedClock)
	ctx := quietCtx()

	counts, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Math", 1), testMajor("M02", "Physics", 1)})
	require.NoError(t, err)
	assert.Equal(t, StageCounts{New: 2}, counts)
	assert.Equal(t, fixedNow, store.stagedMajors[0].UpdatedAt)

	counts, err = rec.StageMajors(ctx, []Major{testMajor("M01", "Mathematics", 1), testMajor("M02", "Physics", 1)})
	require.NoError(t, err)
	assert.Equal(t, StageCounts{Updated: 1, Unchanged: 1}, counts)
	assert.Equal(t, "Mathematics", store.stagedMajors[0].Name)
	assert.Len(t, store.stagedMajors, 2)
}

func TestStageMajors_SameCodeDifferentUniversity(t *testing.T) {
	store := newMemStore(nil)
	rec := NewReconciler(store, fixedClock)

	counts, err := rec.StageMajors(quietCtx(), []Major{testMajor("M01", "Math", 1), testMajor("M01", "Math", 2)})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.New)
}

func TestStageMajors_ComputesMissingFingerprint(t *testing.T) {
	store := newMemStore(nil)
	rec := NewReconciler(store, fixedClock)

	m := Major{Code: "M01", Name: "Math", UniversityID: 1}
	_, err := rec.StageMajors(quietCtx(), []Major{m})
	require.NoError(t, err)
	assert.Equal(t, m.ComputeFingerprint(), store.stagedMajors[0].Fingerprint)
}

func TestStageMajors_RollsBackOnError(t *testing.T) {
	store := newMemStore(nil)
	store.fail["FindStagedMajor"] = errors.New("connection reset by peer")
	rec := NewReconciler(store, fixedClock)

	counts, err := rec.StageMajors(quietCtx(), []Major{testMajor("M01", "Math", 1)})
	require.Error(t, err)
	assert.Equal(t, StageCounts{}, counts)
	assert.Empty(t, store.stagedMajors)
}

func TestStageRequirements_NullAwareKey(t *testing.T) {
	store := newMemStore(nil)
	rec := NewReconciler(store, fixedClock)
	ctx := quietCtx()

	_, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Math", 1)})
	require.NoError(t, err)

	reqs := []AdmissionRequirement{
		testRequirement("M01", StandardizedAptitudeTest, 25.5, pgtype.Int4{}),
		testRequirement("M01", NationalHighSchoolExam, 24, pgtype.Int4{Int32: 100, Valid: true}),
		testRequirement("M01", NationalHighSchoolExam, 23, pgtype.Int4{Int32: 101, Valid: true}),
	}

	counts, err := rec.StageRequirements(ctx, 1, reqs)
	require.NoError(t, err)
	assert.Equal(t, StageCounts{New: 3}, counts)

	// Re-running must match the NULL-combination row rather than insert a duplicate.
	counts, err = rec.StageRequirements(ctx, 1, reqs)
	require.NoError(t, err)
	assert.Equal(t, StageCounts{Unchanged: 3}, counts)
	assert.Len(t, store.stagedRequirements, 3)
}

func TestStageRequirements_ScoreChangeUpdates(t *testing.T) {
	store := newMemStore(nil)
	rec := NewReconciler(store, fixedClock)
	ctx := quietCtx()

	_, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Math", 1)})
	require.NoError(t, err)
	_, err = rec.StageRequirements(ctx, 1, []AdmissionRequirement{testRequirement("M01", StandardizedAptitudeTest, 25.5, pgtype.Int4{})})
	require.NoError(t, err)

	counts, err := rec.StageRequirements(ctx, 1, []AdmissionRequirement{testRequirement("M01", StandardizedAptitudeTest, 26, pgtype.Int4{})})
	require.NoError(t, err)
	assert.Equal(t, StageCounts{Updated: 1}, counts)
	assert.Equal(t, 26.0, store.stagedRequirements[0].Score)
}

func TestStageRequirements_SkipsUnstagedMajor(t *testing.T) {
	store := newMemStore(nil)
	rec := NewReconciler(store, fixedClock)
	ctx := quietCtx()

	_, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Math", 1), testMajor("M09", "Other", 2)})
	require.NoError(t, err)

	counts, err := rec.StageRequirements(ctx, 1, []AdmissionRequirement{
		testRequirement("M01", StandardizedAptitudeTest, 20, pgtype.Int4{}),
		testRequirement("M02", StandardizedAptitudeTest, 20, pgtype.Int4{}),
		// M09 is staged, but for another university.
		testRequirement("M09", StandardizedAptitudeTest, 20, pgtype.Int4{}),
	})
	require.NoError(t, err)
	assert.Equal(t, StageCounts{New: 1, Skipped: 2}, counts)
	assert.Equal(t, 3, counts.Total())
}

// steppingClock moves forward one hour per advance call.
type steppingClock struct{ now time.Time }

func (c *steppingClock) Now() time.Time { return c.now }
func (c *steppingClock) advance()       { c.now = c.now.Add(time.Hour) }

func TestStageMajors_TimestampOnlyMovesOnWrite(t *testing.T) {
	store := newMemStore(nil)
	clock := &steppingClock{now: fixedNow}
	rec := NewReconciler(store, clock.Now)
	ctx := quietCtx()

	_, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Math", 1), testMajor("M02", "Physics", 1)})
	require.NoError(t, err)

	clock.advance()
	counts, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Mathematics", 1), testMajor("M02", "Physics", 1)})
	require.NoError(t, err)
	assert.Equal(t, StageCounts{Updated: 1, Unchanged: 1}, counts)

	assert.Equal(t, fixedNow.Add(time.Hour), store.stagedMajors[0].UpdatedAt)
	assert.Equal(t, fixedNow, store.stagedMajors[1].UpdatedAt)
}

func TestStageRequirements_TimestampOnlyMovesOnWrite(t *testing.T) {
	store := newMemStore(nil)
	clock := &steppingClock{now: fixedNow}
	rec := NewReconciler(store, clock.Now)
	ctx := quietCtx()

	_, err := rec.StageMajors(ctx, []Major{testMajor("M01", "Math", 1)})
	require.NoError(t, err)
	_, err = rec.StageRequirements(ctx, 1, []AdmissionRequirement{
		testRequirement("M01", StandardizedAptitudeTest, 25.5, pgtype.Int4{}),
		testRequirement("M01", NationalHighSchoolExam, 24, pgtype.Int4{Int32: 100, Valid: true}),
	})
	require.NoError(t, err)

	clock.advance()
	counts, err := rec.StageRequirements(ctx, 1, []AdmissionRequirement{
		testRequirement("M01", StandardizedAptitudeTest, 26, pgtype.Int4{}),
		testRequirement("M01", NationalHighSchoolExam, 24, pgtype.Int4{Int32: 100, Valid: true}),
	})
	require.NoError(t, err)
	assert.Equal(t, StageCounts{Updated: 1, Unchanged: 1}, counts)

	assert.Equal(t, fixedNow.Add(time.Hour), store.stagedRequirements[0].UpdatedAt)
	assert.Equal(t, fixedNow, store.stagedRequirements[1].UpdatedAt)
}
