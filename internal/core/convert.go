package core

// convert.go turns raw spreadsheet cells into typed values.
//
// Sheets are edited by hand, so cells arrive with stray whitespace, Excel
// formula prefixes (="value") and quoting. A literal "-" marks a score that
// does not apply. Optional values come back as pgtype with Valid=false.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Placeholder marks a cell that intentionally has no value.
const Placeholder = "-"

// CleanCell trims whitespace, an Excel formula prefix (="..." or =) and one
// matched pair of surrounding quotes. Quotes inside the value are kept.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(unquote(s))
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

// cellAt returns the cleaned cell at index i, or "" when the row is too short.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return CleanCell(row[i])
}

// ToPgInt4 parses an optional integer cell.
// Blank input yields an invalid value and no error; anything else that is not
// an integer is an error.
func ToPgInt4(s string) (pgtype.Int4, error) {
	s = CleanCell(s)
	if s == "" {
		return pgtype.Int4{Valid: false}, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return pgtype.Int4{}, fmt.Errorf("invalid integer %q", s)
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}, nil
}

// ParseYear parses a year cell, using fallback when the cell is blank.
func ParseYear(s string, fallback int) (int, error) {
	v, err := ToPgInt4(s)
	if err != nil {
		return 0, err
	}
	if !v.Valid {
		return fallback, nil
	}
	return int(v.Int32), nil
}

// ParseScore parses a score cell. It reports false for blank cells, the
// placeholder and anything that is not a finite number.
func ParseScore(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" || s == Placeholder {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isScoreCandidate reports whether a cell holds something other than a
// blank or the placeholder.
func isScoreCandidate(s string) bool {
	s = CleanCell(s)
	return s != "" && s != Placeholder
}

func pgInt4(v int32) pgtype.Int4 {
	return pgtype.Int4{Int32: v, Valid: true}
}
