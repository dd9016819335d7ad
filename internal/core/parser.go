package core

// parser.go converts a university's admissions sheet into typed records.
//
// Sheet layout (0-indexed):
//
//	row 0      free-form title, ignored
//	row 1      subject-combination codes from column 3 onwards
//	row 2..n   one major per row:
//	           [0] ordinal (ignored)  [1] code  [2] name  [3] field of study
//	           [4] year  [5] quota  [6] aptitude test score  [7..] exam scores
//
// The i-th code in row 1 names the combination of data column 7+i. Rows may
// be shorter than the header; missing cells are blank.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/admissions/internal/logging"
	"github.com/go-playground/validator/v10"
)

const (
	headerRows           = 2
	combinationHeaderRow = 1

	colMajorCode     = 1
	colMajorName     = 2
	colFieldOfStudy  = 3
	colYear          = 4
	colQuota         = 5
	colAptitudeScore = 6

	// Combination codes and their scores sit at different offsets.
	colFirstCombinationCode  = 3
	colFirstCombinationScore = 7
)

// DefaultAdmissionYear is used when a row leaves the year blank.
const DefaultAdmissionYear = 2025

var validate = validator.New(validator.WithRequiredStructEnabled())

// RejectReason explains why a data row produced no major.
type RejectReason string

const (
	ReasonMissingField RejectReason = "missing_required_field"
	ReasonFieldTooLong RejectReason = "field_too_long"
	ReasonInvalidYear  RejectReason = "invalid_year"
	ReasonInvalidQuota RejectReason = "invalid_quota"
	ReasonTooFewRows   RejectReason = "too_few_rows"
	ReasonDuplicate    RejectReason = "duplicate_major"
)

// RejectedRow records a dropped data row.
type RejectedRow struct {
	Line   int          `json:"line"` // 0-indexed grid row
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// ParseStats summarizes one parse for diagnostics and tests.
type ParseStats struct {
	DataRows            int           `json:"dataRows"`
	Majors              int           `json:"majors"`
	Requirements        int           `json:"requirements"`
	AptitudeScores      int           `json:"aptitudeScores"`
	NationalScores      int           `json:"nationalScores"`
	MissingRequired     int           `json:"missingRequired"`
	InvalidValue        int           `json:"invalidValue"`
	InvalidScores       int           `json:"invalidScores"`
	CombinationColumns  int           `json:"combinationColumns"`
	UnrecognizedColumns int           `json:"unrecognizedColumns"`
	DuplicateMajors     int           `json:"duplicateMajors"`
	DuplicateColumns    int           `json:"duplicateColumns"`
	Rejected            []RejectedRow `json:"rejected,omitempty"`
}

// ParseResult holds the records extracted from one sheet, in sheet order.
type ParseResult struct {
	Majors       []Major
	Requirements []AdmissionRequirement
	Stats        ParseStats
}

// ParserConfig is the immutable input that shapes parsing.
type ParserConfig struct {
	Combinations CombinationTable
	DefaultYear  int
}

// DefaultParserConfig returns the standard table and admission year.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Combinations: DefaultCombinations(),
		DefaultYear:  DefaultAdmissionYear,
	}
}

// Parser turns sheet grids into majors and admission requirements.
// It holds no mutable state and is safe to reuse.
type Parser struct {
	cfg ParserConfig
}

// NewParser creates a Parser.
func NewParser(cfg ParserConfig) *Parser {
	if cfg.DefaultYear == 0 {
		cfg.DefaultYear = DefaultAdmissionYear
	}
	return &Parser{cfg: cfg}
}

// combinationColumn ties a data column to a combination identifier.
type combinationColumn struct {
	index int // data column holding the score
	code  string
	id    int32
}

// Parse extracts records from grid for the given university.
// Fewer than two rows yields an empty result. Diagnostics go to the
// context logger.
func (p *Parser) Parse(ctx context.Context, grid [][]string, universityID int64) ParseResult {
	var result ParseResult
	logger := logging.FromContext(ctx)

	if len(grid) < headerRows {
		logger.Warn("sheet has too few rows",
			"rows", len(grid),
			"required", headerRows,
			"university_id", universityID,
		)
		result.Stats.Rejected = append(result.Stats.Rejected, RejectedRow{
			Line:   0,
			Reason: ReasonTooFewRows,
			Detail: fmt.Sprintf("%d rows", len(grid)),
		})
		return result
	}

	columns := p.combinationColumns(logger, grid[combinationHeaderRow], &result.Stats)
	seen := make(map[string]int, len(grid)-headerRows)

	for line := headerRows; line < len(grid); line++ {
		result.Stats.DataRows++
		row := grid[line]

		major, year, rejected := p.parseMajor(row, line, universityID)
		if rejected != nil {
			switch rejected.Reason {
			case ReasonMissingField:
				result.Stats.MissingRequired++
				logger.Debug("row skipped", "line", line, "reason", rejected.Reason)
			default:
				result.Stats.InvalidValue++
				logger.Warn("row rejected",
					"line", line,
					"reason", rejected.Reason,
					"detail", rejected.Detail,
				)
			}
			result.Stats.Rejected = append(result.Stats.Rejected, *rejected)
			continue
		}

		// A repeated code would stage the same row twice per run.
		if first, dup := seen[major.Code]; dup {
			result.Stats.DuplicateMajors++
			logger.Warn("duplicate major code skipped", "line", line, "code", major.Code, "first_line", first)
			result.Stats.Rejected = append(result.Stats.Rejected, RejectedRow{
				Line:   line,
				Reason: ReasonDuplicate,
				Detail: fmt.Sprintf("code %s first seen on line %d", major.Code, first),
			})
			continue
		}
		seen[major.Code] = line

		result.Majors = append(result.Majors, major)

		if req, ok := p.aptitudeRequirement(row, major.Code, year, &result.Stats); ok {
			result.Requirements = append(result.Requirements, req)
			result.Stats.AptitudeScores++
		}

		for _, col := range columns {
			cell := cellAt(row, col.index)
			if !isScoreCandidate(cell) {
				continue
			}
			score, ok := ParseScore(cell)
			if !ok {
				result.Stats.InvalidScores++
				logger.Debug("score ignored", "line", line, "combination", col.code, "value", cell)
				continue
			}
			req := AdmissionRequirement{
				MajorCode:          major.Code,
				ExamKind:           NationalHighSchoolExam,
				Score:              score,
				SubjectCombination: pgInt4(col.id),
				Year:               year,
			}
			req.Fingerprint = req.ComputeFingerprint()
			result.Requirements = append(result.Requirements, req)
			result.Stats.NationalScores++
		}
	}

	result.Stats.Majors = len(result.Majors)
	result.Stats.Requirements = len(result.Requirements)
	return result
}

// combinationColumns resolves the header row into recognized columns.
// Blank and unknown codes are skipped, and only the first column of a
// repeated combination is kept.
func (p *Parser) combinationColumns(logger *slog.Logger, header []string, stats *ParseStats) []combinationColumn {
	var cols []combinationColumn
	seen := make(map[int32]bool)
	for i := colFirstCombinationCode; i < len(header); i++ {
		code := cellAt(header, i)
		if code == "" {
			continue
		}
		id, ok := p.cfg.Combinations.Lookup(code)
		if !ok {
			stats.UnrecognizedColumns++
			logger.Debug("unrecognized subject combination", "column", i, "code", code)
			continue
		}
		if seen[id] {
			stats.DuplicateColumns++
			logger.Warn("duplicate subject combination column skipped", "column", i, "code", code)
			continue
		}
		seen[id] = true
		cols = append(cols, combinationColumn{
			index: colFirstCombinationScore + i - colFirstCombinationCode,
			code:  code,
			id:    id,
		})
	}
	stats.CombinationColumns = len(cols)
	return cols
}

// parseMajor validates one data row. On rejection the returned RejectedRow is non-nil.
func (p *Parser) parseMajor(row []string, line int, universityID int64) (Major, int, *RejectedRow) {
	major := Major{
		Code:         cellAt(row, colMajorCode),
		Name:         cellAt(row, colMajorName),
		FieldOfStudy: cellAt(row, colFieldOfStudy),
		UniversityID: universityID,
	}
	if major.FieldOfStudy == "" {
		major.FieldOfStudy = UncategorizedField
	}

	if err := validate.Struct(major); err != nil {
		return Major{}, 0, rejectionFromValidation(line, err)
	}

	year, err := ParseYear(cellAt(row, colYear), p.cfg.DefaultYear)
	if err != nil {
		return Major{}, 0, &RejectedRow{Line: line, Reason: ReasonInvalidYear, Detail: err.Error()}
	}

	quota, err := ToPgInt4(cellAt(row, colQuota))
	if err != nil {
		return Major{}, 0, &RejectedRow{Line: line, Reason: ReasonInvalidQuota, Detail: err.Error()}
	}
	if quota.Valid && quota.Int32 < 0 {
		return Major{}, 0, &RejectedRow{Line: line, Reason: ReasonInvalidQuota, Detail: fmt.Sprintf("negative quota %d", quota.Int32)}
	}
	major.EnrollmentQuota = quota
	major.Fingerprint = major.ComputeFingerprint()

	return major, year, nil
}

func (p *Parser) aptitudeRequirement(row []string, majorCode string, year int, stats *ParseStats) (AdmissionRequirement, bool) {
	cell := cellAt(row, colAptitudeScore)
	if !isScoreCandidate(cell) {
		return AdmissionRequirement{}, false
	}
	score, ok := ParseScore(cell)
	if !ok {
		stats.InvalidScores++
		return AdmissionRequirement{}, false
	}
	req := AdmissionRequirement{
		MajorCode: majorCode,
		ExamKind:  StandardizedAptitudeTest,
		Score:     score,
		Year:      year,
	}
	req.Fingerprint = req.ComputeFingerprint()
	return req, true
}

func rejectionFromValidation(line int, err error) *RejectedRow {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := ReasonFieldTooLong
		if fe.Tag() == "required" {
			reason = ReasonMissingField
		}
		return &RejectedRow{
			Line:   line,
			Reason: reason,
			Detail: fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()),
		}
	}
	return &RejectedRow{Line: line, Reason: ReasonMissingField, Detail: err.Error()}
}
