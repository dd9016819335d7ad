package database

import (
	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/huandu/go-sqlbuilder"
)

// Table names.
const (
	tableUniversities       = "universities"
	tableStagedMajors       = "staging_majors"
	tableStagedRequirements = "staging_admission_requirements"
	tableMajors             = "majors"
	tableRequirements       = "admission_requirements"
	tableSyncRuns           = "sync_runs"
)

var (
	stagedMajorCols = []string{"id", "code", "name", "field_of_study", "enrollment_quota", "university_id", "fingerprint", "updated_at"}
	majorCols       = []string{"id", "code", "name", "field_of_study", "enrollment_quota", "university_id"}
	requirementCols = []string{"id", "major_id", "exam_kind", "score", "subject_combination", "year"}
	syncRunCols     = []string{"id", "batch_id", "university_code", "spreadsheet_id", "status", "phase", "error_code", "error", "summary", "started_at", "finished_at"}
)

// conditioner is the part of sqlbuilder.Cond used to build WHERE clauses.
type conditioner interface {
	Equal(field string, value interface{}) string
	IsNull(field string) string
}

// requirementKeyWhere matches a requirement natural key. SQL NULL never
// equals NULL, so an absent subject combination is matched with IS NULL.
func requirementKeyWhere(c conditioner, key core.RequirementKey) []string {
	where := []string{
		c.Equal("major_id", key.MajorID),
		c.Equal("exam_kind", int16(key.ExamKind)),
		c.Equal("year", key.Year),
	}
	if key.SubjectCombination.Valid {
		return append(where, c.Equal("subject_combination", key.SubjectCombination.Int32))
	}
	return append(where, c.IsNull("subject_combination"))
}

func universityIDQuery(code string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id").From(tableUniversities).Where(sb.Equal("code", code))
	return sb.Build()
}

func findStagedMajorQuery(code string, universityID int64) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(stagedMajorCols...).From(tableStagedMajors)
	sb.Where(sb.Equal("code", code), sb.Equal("university_id", universityID))
	return sb.Build()
}

func listStagedMajorsQuery(universityID *int64) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(stagedMajorCols...).From(tableStagedMajors)
	if universityID != nil {
		sb.Where(sb.Equal("university_id", *universityID))
	}
	sb.OrderBy("id")
	return sb.Build()
}

func insertStagedMajorQuery(m core.Major, at interface{}) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tableStagedMajors).
		Cols("code", "name", "field_of_study", "enrollment_quota", "university_id", "fingerprint", "updated_at").
		Values(m.Code, m.Name, m.FieldOfStudy, m.EnrollmentQuota, m.UniversityID, m.Fingerprint, at)
	ib.SQL("RETURNING id")
	return ib.Build()
}

func updateStagedMajorQuery(id int64, m core.Major, at interface{}) (string, []interface{}) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tableStagedMajors).Set(
		ub.Assign("name", m.Name),
		ub.Assign("field_of_study", m.FieldOfStudy),
		ub.Assign("enrollment_quota", m.EnrollmentQuota),
		ub.Assign("fingerprint", m.Fingerprint),
		ub.Assign("updated_at", at),
	).Where(ub.Equal("id", id))
	return ub.Build()
}

func findStagedRequirementQuery(key core.RequirementKey) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "major_id", "exam_kind", "score", "subject_combination", "year", "fingerprint", "updated_at").
		From(tableStagedRequirements)
	sb.Where(requirementKeyWhere(sb, key)...)
	return sb.Build()
}

func insertStagedRequirementQuery(key core.RequirementKey, r core.AdmissionRequirement, at interface{}) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tableStagedRequirements).
		Cols("major_id", "exam_kind", "score", "subject_combination", "year", "fingerprint", "updated_at").
		Values(key.MajorID, int16(key.ExamKind), r.Score, key.SubjectCombination, key.Year, r.Fingerprint, at)
	ib.SQL("RETURNING id")
	return ib.Build()
}

func updateStagedRequirementQuery(id int64, r core.AdmissionRequirement, at interface{}) (string, []interface{}) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tableStagedRequirements).Set(
		ub.Assign("score", r.Score),
		ub.Assign("fingerprint", r.Fingerprint),
		ub.Assign("updated_at", at),
	).Where(ub.Equal("id", id))
	return ub.Build()
}

// listStagedRequirementsQuery joins staging majors to recover major codes.
func listStagedRequirementsQuery() (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"r.id", "r.major_id", "m.code", "r.exam_kind", "r.score",
		"r.subject_combination", "r.year", "r.fingerprint", "r.updated_at",
	).
		From(sb.As(tableStagedRequirements, "r")).
		Join(sb.As(tableStagedMajors, "m"), "m.id = r.major_id").
		OrderBy("r.id")
	return sb.Build()
}

func findMajorQuery(code string, universityID int64) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(majorCols...).From(tableMajors)
	sb.Where(sb.Equal("code", code), sb.Equal("university_id", universityID))
	return sb.Build()
}

// findMajorIDByCodeQuery is not scoped by university; the lowest id wins.
func findMajorIDByCodeQuery(code string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id").From(tableMajors).Where(sb.Equal("code", code)).OrderBy("id").Limit(1)
	return sb.Build()
}

func insertMajorQuery(m core.ProductionMajor) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tableMajors).
		Cols("code", "name", "field_of_study", "enrollment_quota", "university_id").
		Values(m.Code, m.Name, m.FieldOfStudy, m.EnrollmentQuota, m.UniversityID)
	ib.SQL("RETURNING id")
	return ib.Build()
}

func updateMajorQuery(id int64, m core.ProductionMajor) (string, []interface{}) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tableMajors).Set(
		ub.Assign("name", m.Name),
		ub.Assign("field_of_study", m.FieldOfStudy),
		ub.Assign("enrollment_quota", m.EnrollmentQuota),
		"updated_at = now()",
	).Where(ub.Equal("id", id))
	return ub.Build()
}

func findRequirementQuery(key core.RequirementKey) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(requirementCols...).From(tableRequirements)
	sb.Where(requirementKeyWhere(sb, key)...)
	return sb.Build()
}

func insertRequirementQuery(r core.ProductionRequirement) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tableRequirements).
		Cols("major_id", "exam_kind", "score", "subject_combination", "year").
		Values(r.MajorID, int16(r.ExamKind), r.Score, r.SubjectCombination, r.Year)
	ib.SQL("RETURNING id")
	return ib.Build()
}

func updateRequirementQuery(id int64, r core.ProductionRequirement) (string, []interface{}) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tableRequirements).Set(
		ub.Assign("score", r.Score),
		"updated_at = now()",
	).Where(ub.Equal("id", id))
	return ub.Build()
}

func insertSyncRunQuery(run core.SyncRun) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tableSyncRuns).
		Cols(syncRunCols...).
		Values(
			run.ID, run.BatchID, run.UniversityCode, run.SpreadsheetID,
			string(run.Status), string(run.Phase), nullText(run.ErrorCode), nullText(run.Error),
			run.Summary, run.StartedAt, run.FinishedAt,
		)
	return ib.Build()
}

func recentRunsQuery(limit int) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(syncRunCols...).From(tableSyncRuns).OrderBy("started_at").Desc().Limit(limit)
	return sb.Build()
}
