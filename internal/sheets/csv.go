package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/admissions/internal/logging"
)

// utf8BOM is prepended by Excel and other Windows exporters.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource reads <dir>/<spreadsheetID>.csv.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// ReadGrid loads one export. Rows may have differing lengths.
func (c *CSVSource) ReadGrid(ctx context.Context, spreadsheetID string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Reject ids that would escape the export directory.
	if spreadsheetID == "" || filepath.Base(spreadsheetID) != spreadsheetID {
		return nil, fmt.Errorf("invalid spreadsheet id %q", spreadsheetID)
	}

	path := filepath.Join(c.dir, spreadsheetID+".csv")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	grid, err := decodeGrid(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	logging.FromContext(ctx).Debug("sheet loaded", "path", path, "rows", len(grid))
	return grid, nil
}

// decodeGrid strips a BOM, replaces invalid UTF-8 with '?' and splits rows.
func decodeGrid(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text := strings.ToValidUTF8(string(data), "?")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}
