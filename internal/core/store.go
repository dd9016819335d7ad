package core

import (
	"context"
	"time"
)

// Store is the relational store the pipeline writes to.
//
// InTx runs fn inside one transaction and commits when fn returns nil.
// Each pipeline stage uses its own InTx call, so a failure in a later
// stage leaves earlier stages committed.
type Store interface {
	// UniversityID resolves a university code. It returns an error wrapping
	// ErrEntityNotFound when the code is unknown.
	UniversityID(ctx context.Context, code string) (int64, error)

	InTx(ctx context.Context, fn func(q Queries) error) error

	Ping(ctx context.Context) error

	RecordRun(ctx context.Context, run SyncRun) error
	RecentRuns(ctx context.Context, limit int) ([]SyncRun, error)
}

// Queries are the point lookups and single-row writes issued inside a stage.
// Find* methods return (nil, nil) when no row matches.
type Queries interface {
	StagingQueries
	ProductionQueries
}

// StagingQueries operate on staging_majors and staging_admission_requirements.
type StagingQueries interface {
	FindStagedMajor(ctx context.Context, code string, universityID int64) (*StagedMajor, error)
	InsertStagedMajor(ctx context.Context, m Major, at time.Time) (int64, error)
	UpdateStagedMajor(ctx context.Context, id int64, m Major, at time.Time) error

	// ListStagedMajors returns every staged major.
	ListStagedMajors(ctx context.Context) ([]StagedMajor, error)

	// ListStagedMajorsByUniversity returns the staged majors of one university.
	ListStagedMajorsByUniversity(ctx context.Context, universityID int64) ([]StagedMajor, error)

	// FindStagedRequirement must treat an absent subject combination as equal
	// only to another absent one.
	FindStagedRequirement(ctx context.Context, key RequirementKey) (*StagedRequirement, error)
	InsertStagedRequirement(ctx context.Context, key RequirementKey, r AdmissionRequirement, at time.Time) (int64, error)
	UpdateStagedRequirement(ctx context.Context, id int64, r AdmissionRequirement, at time.Time) error

	// ListStagedRequirements returns every staged requirement with its major code.
	ListStagedRequirements(ctx context.Context) ([]StagedRequirement, error)
}

// ProductionQueries operate on majors and admission_requirements.
type ProductionQueries interface {
	FindMajor(ctx context.Context, code string, universityID int64) (*ProductionMajor, error)

	// FindMajorIDByCode looks a major up by code alone, across universities.
	FindMajorIDByCode(ctx context.Context, code string) (int64, bool, error)

	InsertMajor(ctx context.Context, m ProductionMajor) (int64, error)
	UpdateMajor(ctx context.Context, id int64, m ProductionMajor) error

	// FindRequirement has the same NULL-aware matching as FindStagedRequirement.
	FindRequirement(ctx context.Context, key RequirementKey) (*ProductionRequirement, error)
	InsertRequirement(ctx context.Context, r ProductionRequirement) (int64, error)
	UpdateRequirement(ctx context.Context, id int64, r ProductionRequirement) error
}

// GridSource fetches a spreadsheet as rows of string cells.
type GridSource interface {
	ReadGrid(ctx context.Context, sourceID string) ([][]string, error)
}
