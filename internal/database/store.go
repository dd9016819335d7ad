// Package database is the PostgreSQL store behind the sync pipeline.
//
// Queries are built with go-sqlbuilder using the PostgreSQL flavor and run
// through pgx. Each pipeline stage runs in its own transaction via InTx.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements core.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UniversityID resolves a university code to its id.
func (s *Store) UniversityID(ctx context.Context, code string) (int64, error) {
	query, args := universityIDQuery(code)

	var id int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", core.ErrEntityNotFound, code)
	}
	if err != nil {
		return 0, fmt.Errorf("query university %s: %w", code, err)
	}
	return id, nil
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(q core.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(NewQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping verifies a connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordRun inserts a sync_runs row.
func (s *Store) RecordRun(ctx context.Context, run core.SyncRun) error {
	query, args := insertSyncRunQuery(run)
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest sync_runs rows.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]core.SyncRun, error) {
	query, args := recentRunsQuery(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.SyncRun, error) {
		var (
			run               core.SyncRun
			status, phase     string
			errorCode, errMsg pgtype.Text
		)
		err := row.Scan(
			&run.ID, &run.BatchID, &run.UniversityCode, &run.SpreadsheetID,
			&status, &phase, &errorCode, &errMsg,
			&run.Summary, &run.StartedAt, &run.FinishedAt,
		)
		run.Status = core.RunStatus(status)
		run.Phase = core.SyncPhase(phase)
		run.ErrorCode = errorCode.String
		run.Error = errMsg.String
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan sync runs: %w", err)
	}
	return runs, nil
}

// Queries implements core.Queries against any DBTX.
type Queries struct {
	db DBTX
}

var _ core.Queries = (*Queries)(nil)

// NewQueries creates Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) FindStagedMajor(ctx context.Context, code string, universityID int64) (*core.StagedMajor, error) {
	query, args := findStagedMajorQuery(code, universityID)
	m, err := scanStagedMajor(q.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Queries) InsertStagedMajor(ctx context.Context, m core.Major, at time.Time) (int64, error) {
	query, args := insertStagedMajorQuery(m, at)
	var id int64
	err := q.db.QueryRow(ctx, query, args...).Scan(&id)
	return id, err
}

func (q *Queries) UpdateStagedMajor(ctx context.Context, id int64, m core.Major, at time.Time) error {
	query, args := updateStagedMajorQuery(id, m, at)
	_, err := q.db.Exec(ctx, query, args...)
	return err
}

func (q *Queries) ListStagedMajors(ctx context.Context) ([]core.StagedMajor, error) {
	query, args := listStagedMajorsQuery(nil)
	return q.listStagedMajors(ctx, query, args)
}

func (q *Queries) ListStagedMajorsByUniversity(ctx context.Context, universityID int64) ([]core.StagedMajor, error) {
	query, args := listStagedMajorsQuery(&universityID)
	return q.listStagedMajors(ctx, query, args)
}

func (q *Queries) listStagedMajors(ctx context.Context, query string, args []interface{}) ([]core.StagedMajor, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.StagedMajor, error) {
		return scanStagedMajor(row)
	})
}

func (q *Queries) FindStagedRequirement(ctx context.Context, key core.RequirementKey) (*core.StagedRequirement, error) {
	query, args := findStagedRequirementQuery(key)

	var (
		r    core.StagedRequirement
		kind int16
	)
	err := q.db.QueryRow(ctx, query, args...).Scan(
		&r.ID, &r.MajorID, &kind, &r.Score, &r.SubjectCombination, &r.Year, &r.Fingerprint, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.ExamKind = core.ExamKind(kind)
	return &r, nil
}

func (q *Queries) InsertStagedRequirement(ctx context.Context, key core.RequirementKey, r core.AdmissionRequirement, at time.Time) (int64, error) {
	query, args := insertStagedRequirementQuery(key, r, at)
	var id int64
	err := q.db.QueryRow(ctx, query, args...).Scan(&id)
	return id, err
}

func (q *Queries) UpdateStagedRequirement(ctx context.Context, id int64, r core.AdmissionRequirement, at time.Time) error {
	query, args := updateStagedRequirementQuery(id, r, at)
	_, err := q.db.Exec(ctx, query, args...)
	return err
}

func (q *Queries) ListStagedRequirements(ctx context.Context) ([]core.StagedRequirement, error) {
	query, args := listStagedRequirementsQuery()
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.StagedRequirement, error) {
		var (
			r    core.StagedRequirement
			kind int16
		)
		err := row.Scan(
			&r.ID, &r.MajorID, &r.MajorCode, &kind, &r.Score,
			&r.SubjectCombination, &r.Year, &r.Fingerprint, &r.UpdatedAt,
		)
		r.ExamKind = core.ExamKind(kind)
		return r, err
	})
}

func (q *Queries) FindMajor(ctx context.Context, code string, universityID int64) (*core.ProductionMajor, error) {
	query, args := findMajorQuery(code, universityID)

	var m core.ProductionMajor
	err := q.db.QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.Code, &m.Name, &m.FieldOfStudy, &m.EnrollmentQuota, &m.UniversityID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Queries) FindMajorIDByCode(ctx context.Context, code string) (int64, bool, error) {
	query, args := findMajorIDByCodeQuery(code)

	var id int64
	err := q.db.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (q *Queries) InsertMajor(ctx context.Context, m core.ProductionMajor) (int64, error) {
	query, args := insertMajorQuery(m)
	var id int64
	err := q.db.QueryRow(ctx, query, args...).Scan(&id)
	return id, err
}

func (q *Queries) UpdateMajor(ctx context.Context, id int64, m core.ProductionMajor) error {
	query, args := updateMajorQuery(id, m)
	_, err := q.db.Exec(ctx, query, args...)
	return err
}

func (q *Queries) FindRequirement(ctx context.Context, key core.RequirementKey) (*core.ProductionRequirement, error) {
	query, args := findRequirementQuery(key)

	var (
		r    core.ProductionRequirement
		kind int16
	)
	err := q.db.QueryRow(ctx, query, args...).Scan(
		&r.ID, &r.MajorID, &kind, &r.Score, &r.SubjectCombination, &r.Year,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.ExamKind = core.ExamKind(kind)
	return &r, nil
}

func (q *Queries) InsertRequirement(ctx context.Context, r core.ProductionRequirement) (int64, error) {
	query, args := insertRequirementQuery(r)
	var id int64
	err := q.db.QueryRow(ctx, query, args...).Scan(&id)
	return id, err
}

func (q *Queries) UpdateRequirement(ctx context.Context, id int64, r core.ProductionRequirement) error {
	query, args := updateRequirementQuery(id, r)
	_, err := q.db.Exec(ctx, query, args...)
	return err
}

func scanStagedMajor(row pgx.Row) (core.StagedMajor, error) {
	var m core.StagedMajor
	err := row.Scan(
		&m.ID, &m.Code, &m.Name, &m.FieldOfStudy, &m.EnrollmentQuota,
		&m.UniversityID, &m.Fingerprint, &m.UpdatedAt,
	)
	return m, err
}

// nullText stores empty strings as NULL.
func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
