package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store. InTx snapshots state and restores it
// when fn fails, so tests see the same commit boundaries as Postgres.
type memStore struct {
	mu sync.Mutex

	universities map[string]int64
	nextID       int64

	stagedMajors       []StagedMajor
	stagedRequirements []StagedRequirement
	majors             []ProductionMajor
	requirements       []ProductionRequirement
	runs               []SyncRun

	writes  int
	pingErr error
	fail    map[string]error
}

func newMemStore(universities map[string]int64) *memStore {
	return &memStore{universities: universities, fail: map[string]error{}}
}

type memSnapshot struct {
	stagedMajors       []StagedMajor
	stagedRequirements []StagedRequirement
	majors             []ProductionMajor
	requirements       []ProductionRequirement
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		stagedMajors:       append([]StagedMajor(nil), s.stagedMajors...),
		stagedRequirements: append([]StagedRequirement(nil), s.stagedRequirements...),
		majors:             append([]ProductionMajor(nil), s.majors...),
		requirements:       append([]ProductionRequirement(nil), s.requirements...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.stagedMajors = snap.stagedMajors
	s.stagedRequirements = snap.stagedRequirements
	s.majors = snap.majors
	s.requirements = snap.requirements
}

func (s *memStore) failure(op string) error {
	if err, ok := s.fail[op]; ok {
		return err
	}
	return nil
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) UniversityID(_ context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.universities[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEntityNotFound, code)
	}
	return id, nil
}

func (s *memStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	writes := s.writes
	if err := fn(memQueries{s}); err != nil {
		s.restore(snap)
		s.writes = writes
		return err
	}
	return nil
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) RecordRun(_ context.Context, run SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("RecordRun"); err != nil {
		return err
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *memStore) RecentRuns(_ context.Context, limit int) ([]SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := append([]SyncRun(nil), s.runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// memQueries runs with memStore.mu held by InTx.
type memQueries struct{ s *memStore }

var errNotFound = errors.New("row not found")

func (q memQueries) FindStagedMajor(_ context.Context, code string, universityID int64) (*StagedMajor, error) {
	if err := q.s.failure("FindStagedMajor"); err != nil {
		return nil, err
	}
	for i := range q.s.stagedMajors {
		m := q.s.stagedMajors[i]
		if m.Code == code && m.UniversityID == universityID {
			return &m, nil
		}
	}
	return nil, nil
}

func (q memQueries) InsertStagedMajor(_ context.Context, m Major, at time.Time) (int64, error) {
	if err := q.s.failure("InsertStagedMajor"); err != nil {
		return 0, err
	}
	id := q.s.id()
	q.s.stagedMajors = append(q.s.stagedMajors, StagedMajor{ID: id, Major: m, UpdatedAt: at})
	q.s.writes++
	return id, nil
}

func (q memQueries) UpdateStagedMajor(_ context.Context, id int64, m Major, at time.Time) error {
	for i := range q.s.stagedMajors {
		if q.s.stagedMajors[i].ID == id {
			q.s.stagedMajors[i].Major = m
			q.s.stagedMajors[i].UpdatedAt = at
			q.s.writes++
			return nil
		}
	}
	return errNotFound
}

func (q memQueries) ListStagedMajors(context.Context) ([]StagedMajor, error) {
	return append([]StagedMajor(nil), q.s.stagedMajors...), nil
}

func (q memQueries) ListStagedMajorsByUniversity(_ context.Context, universityID int64) ([]StagedMajor, error) {
	var out []StagedMajor
	for _, m := range q.s.stagedMajors {
		if m.UniversityID == universityID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (q memQueries) FindStagedRequirement(_ context.Context, key RequirementKey) (*StagedRequirement, error) {
	for i := range q.s.stagedRequirements {
		r := q.s.stagedRequirements[i]
		if r.Key().Matches(key) {
			return &r, nil
		}
	}
	return nil, nil
}

func (q memQueries) InsertStagedRequirement(_ context.Context, key RequirementKey, r AdmissionRequirement, at time.Time) (int64, error) {
	if err := q.s.failure("InsertStagedRequirement"); err != nil {
		return 0, err
	}
	id := q.s.id()
	q.s.stagedRequirements = append(q.s.stagedRequirements, StagedRequirement{
		ID:                 id,
		MajorID:            key.MajorID,
		MajorCode:          r.MajorCode,
		ExamKind:           key.ExamKind,
		Score:              r.Score,
		SubjectCombination: key.SubjectCombination,
		Year:               key.Year,
		Fingerprint:        r.Fingerprint,
		UpdatedAt:          at,
	})
	q.s.writes++
	return id, nil
}

func (q memQueries) UpdateStagedRequirement(_ context.Context, id int64, r AdmissionRequirement, at time.Time) error {
	for i := range q.s.stagedRequirements {
		if q.s.stagedRequirements[i].ID == id {
			q.s.stagedRequirements[i].Score = r.Score
			q.s.stagedRequirements[i].Fingerprint = r.Fingerprint
			q.s.stagedRequirements[i].UpdatedAt = at
			q.s.writes++
			return nil
		}
	}
	return errNotFound
}

func (q memQueries) ListStagedRequirements(context.Context) ([]StagedRequirement, error) {
	return append([]StagedRequirement(nil), q.s.stagedRequirements...), nil
}

func (q memQueries) FindMajor(_ context.Context, code string, universityID int64) (*ProductionMajor, error) {
	if err := q.s.failure("FindMajor"); err != nil {
		return nil, err
	}
	for i := range q.s.majors {
		m := q.s.majors[i]
		if m.Code == code && m.UniversityID == universityID {
			return &m, nil
		}
	}
	return nil, nil
}

func (q memQueries) FindMajorIDByCode(_ context.Context, code string) (int64, bool, error) {
	for _, m := range q.s.majors {
		if m.Code == code {
			return m.ID, true, nil
		}
	}
	return 0, false, nil
}

func (q memQueries) InsertMajor(_ context.Context, m ProductionMajor) (int64, error) {
	m.ID = q.s.id()
	q.s.majors = append(q.s.majors, m)
	q.s.writes++
	return m.ID, nil
}

func (q memQueries) UpdateMajor(_ context.Context, id int64, m ProductionMajor) error {
	for i := range q.s.majors {
		if q.s.majors[i].ID == id {
			q.s.majors[i].Name = m.Name
			q.s.majors[i].FieldOfStudy = m.FieldOfStudy
			q.s.majors[i].EnrollmentQuota = m.EnrollmentQuota
			q.s.writes++
			return nil
		}
	}
	return errNotFound
}

func (q memQueries) FindRequirement(_ context.Context, key RequirementKey) (*ProductionRequirement, error) {
	for i := range q.s.requirements {
		r := q.s.requirements[i]
		k := RequirementKey{MajorID: r.MajorID, ExamKind: r.ExamKind, Year: r.Year, SubjectCombination: r.SubjectCombination}
		if k.Matches(key) {
			return &r, nil
		}
	}
	return nil, nil
}

func (q memQueries) InsertRequirement(_ context.Context, r ProductionRequirement) (int64, error) {
	if err := q.s.failure("InsertRequirement"); err != nil {
		return 0, err
	}
	r.ID = q.s.id()
	q.s.requirements = append(q.s.requirements, r)
	q.s.writes++
	return r.ID, nil
}

func (q memQueries) UpdateRequirement(_ context.Context, id int64, r ProductionRequirement) error {
	for i := range q.s.requirements {
		if q.s.requirements[i].ID == id {
			q.s.requirements[i].Score = r.Score
			q.s.writes++
			return nil
		}
	}
	return errNotFound
}

// memSource serves grids by spreadsheet ID.
type memSource struct {
	grids  map[string][][]string
	errs   map[string]error
	panics map[string]bool
}

func (m memSource) ReadGrid(ctx context.Context, id string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.panics[id] {
		panic("sheet reader exploded")
	}
	if err, ok := m.errs[id]; ok {
		return nil, err
	}
	grid, ok := m.grids[id]
	if !ok {
		return nil, errors.New("404 spreadsheet not found")
	}
	return grid, nil
}
