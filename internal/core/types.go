package core

import (
	"time"

	"github.com/JonMunkholm/admissions/internal/fingerprint"
	"github.com/jackc/pgx/v5/pgtype"
)

// UncategorizedField is stored when a major's field of study is blank.
const UncategorizedField = "Uncategorized"

// ExamKind identifies which exam an admission score belongs to.
type ExamKind int

const (
	NationalHighSchoolExam   ExamKind = 0
	StandardizedAptitudeTest ExamKind = 1
)

// String returns the label used in fingerprints and logs.
func (k ExamKind) String() string {
	switch k {
	case StandardizedAptitudeTest:
		return "StandardizedAptitudeTest"
	case NationalHighSchoolExam:
		return "NationalHighSchoolExam"
	default:
		return "Unknown"
	}
}

// Major is one academic major parsed from a university's sheet.
// Natural key: (Code, UniversityID).
type Major struct {
	Code            string      `json:"code" validate:"required,max=50"`
	Name            string      `json:"name" validate:"required,max=200"`
	FieldOfStudy    string      `json:"fieldOfStudy" validate:"max=100"`
	EnrollmentQuota pgtype.Int4 `json:"enrollmentQuota"` // Valid=false when the sheet leaves it blank
	UniversityID    int64       `json:"universityId"`
	Fingerprint     string      `json:"fingerprint"`
}

// ComputeFingerprint hashes the significant fields in their fixed order.
func (m Major) ComputeFingerprint() string {
	return fingerprint.Of(m.Code, m.Name, m.FieldOfStudy, m.EnrollmentQuota, m.UniversityID)
}

// AdmissionRequirement is one minimum score for a major.
// SubjectCombination is only valid for NationalHighSchoolExam rows.
type AdmissionRequirement struct {
	MajorCode          string      `json:"majorCode"`
	ExamKind           ExamKind    `json:"examKind"`
	Score              float64     `json:"score"`
	SubjectCombination pgtype.Int4 `json:"subjectCombination"`
	Year               int         `json:"year"`
	Fingerprint        string      `json:"fingerprint"`
}

// ComputeFingerprint hashes the significant fields in their fixed order.
// The owning university is deliberately not part of it.
func (r AdmissionRequirement) ComputeFingerprint() string {
	return fingerprint.Of(r.MajorCode, r.ExamKind.String(), r.Score, r.SubjectCombination, r.Year)
}

// RequirementKey is the natural key of a requirement in staging and production.
type RequirementKey struct {
	MajorID            int64
	ExamKind           ExamKind
	Year               int
	SubjectCombination pgtype.Int4
}

// Matches compares two keys. An absent subject combination matches only
// another absent one.
func (k RequirementKey) Matches(other RequirementKey) bool {
	return k.MajorID == other.MajorID &&
		k.ExamKind == other.ExamKind &&
		k.Year == other.Year &&
		SameCombination(k.SubjectCombination, other.SubjectCombination)
}

// SameCombination is NULL-aware equality for subject combinations.
func SameCombination(a, b pgtype.Int4) bool {
	switch {
	case !a.Valid && !b.Valid:
		return true
	case a.Valid != b.Valid:
		return false
	default:
		return a.Int32 == b.Int32
	}
}

// StagedMajor is a row of staging_majors.
type StagedMajor struct {
	ID int64
	Major
	UpdatedAt time.Time
}

// StagedRequirement is a row of staging_admission_requirements.
// MajorCode is recovered by joining staging_majors.
type StagedRequirement struct {
	ID                 int64
	MajorID            int64
	MajorCode          string
	ExamKind           ExamKind
	Score              float64
	SubjectCombination pgtype.Int4
	Year               int
	Fingerprint        string
	UpdatedAt          time.Time
}

// Key returns the staging natural key.
func (r StagedRequirement) Key() RequirementKey {
	return RequirementKey{
		MajorID:            r.MajorID,
		ExamKind:           r.ExamKind,
		Year:               r.Year,
		SubjectCombination: r.SubjectCombination,
	}
}

// ProductionMajor is a row of majors.
type ProductionMajor struct {
	ID              int64
	Code            string
	Name            string
	FieldOfStudy    string
	EnrollmentQuota pgtype.Int4
	UniversityID    int64
}

// ProductionRequirement is a row of admission_requirements.
type ProductionRequirement struct {
	ID                 int64
	MajorID            int64
	ExamKind           ExamKind
	Score              float64
	SubjectCombination pgtype.Int4
	Year               int
}

// StageCounts reports what a staging pass did.
type StageCounts struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Total returns the number of records examined.
func (c StageCounts) Total() int {
	return c.New + c.Updated + c.Unchanged + c.Skipped
}

// MergeCounts reports what a production merge pass did.
type MergeCounts struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SyncPhase indicates the current stage of a university sync.
type SyncPhase string

const (
	PhaseResolving     SyncPhase = "resolving"
	PhaseFetching      SyncPhase = "fetching"
	PhaseParsing       SyncPhase = "parsing"
	PhaseStagingMajors SyncPhase = "staging_majors"
	PhaseStagingReqs   SyncPhase = "staging_requirements"
	PhaseMergingMajors SyncPhase = "merging_majors"
	PhaseMergingReqs   SyncPhase = "merging_requirements"
	PhaseComplete      SyncPhase = "complete"
)

// RunSummary holds the per-stage results of one university sync.
type RunSummary struct {
	Parse              ParseStats  `json:"parse"`
	StagedMajors       StageCounts `json:"stagedMajors"`
	StagedRequirements StageCounts `json:"stagedRequirements"`
	MergedMajors       MergeCounts `json:"mergedMajors"`
	MergedRequirements MergeCounts `json:"mergedRequirements"`
}

// UniversityReport is the outcome of syncing one spreadsheet.
type UniversityReport struct {
	UniversityCode string    `json:"universityCode"`
	SpreadsheetID  string    `json:"spreadsheetId"`
	Success        bool      `json:"success"`
	Phase          SyncPhase `json:"phase"`
	Error          string    `json:"error,omitempty"`
	ErrorCode      string    `json:"errorCode,omitempty"`
	RunSummary
	Duration time.Duration `json:"duration"`
}

// BatchReport is the outcome of syncing every configured spreadsheet.
type BatchReport struct {
	BatchID      string             `json:"batchId"`
	Universities []UniversityReport `json:"universities"`
	Succeeded    int                `json:"succeeded"`
	Failed       int                `json:"failed"`
	Duration     time.Duration      `json:"duration"`
}
