package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Grid reader kinds accepted by SYNC_SOURCE.
const (
	SourceGoogle = "google"
	SourceCSV    = "csv"
)

// Source binds a university to the spreadsheet holding its admissions data.
type Source struct {
	UniversityCode string `json:"universityCode" validate:"required,max=50,alphanum,uppercase"`
	SpreadsheetID  string `json:"spreadsheetId" validate:"required,max=200"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadSources reads the sources file at path.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer f.Close()

	sources, err := ParseSources(f)
	if err != nil {
		return nil, fmt.Errorf("sources file %s: %w", path, err)
	}
	return sources, nil
}

// ParseSources reads university_code,spreadsheet_id records.
//
// An optional header row is skipped, lines starting with # are comments,
// and file order is preserved. Duplicate university codes are rejected.
func ParseSources(r io.Reader) ([]Source, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		sources []Source
		errs    []error
		seen    = make(map[string]int)
		line    int
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sources: %w", err)
		}
		line++

		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "university_code") {
			continue
		}
		if len(record) < 2 {
			errs = append(errs, fmt.Errorf("line %d: expected university_code,spreadsheet_id", line))
			continue
		}

		src := Source{
			UniversityCode: strings.TrimSpace(record[0]),
			SpreadsheetID:  strings.TrimSpace(record[1]),
		}
		if err := validate.Struct(src); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if prev, ok := seen[src.UniversityCode]; ok {
			errs = append(errs, fmt.Errorf("line %d: duplicate university %s (first on line %d)", line, src.UniversityCode, prev))
			continue
		}
		seen[src.UniversityCode] = line
		sources = append(sources, src)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources configured")
	}
	return sources, nil
}

// FindSource returns the source for a university code.
func FindSource(sources []Source, universityCode string) (Source, bool) {
	for _, s := range sources {
		if s.UniversityCode == universityCode {
			return s, true
		}
	}
	return Source{}, false
}
