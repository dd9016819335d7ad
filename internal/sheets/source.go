// Package sheets reads admission spreadsheets as string grids.
//
// Two sources are available: the Google Sheets API for production and a
// directory of CSV exports for local runs and tests. Both satisfy
// core.GridSource.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/admissions/internal/config"
	"github.com/JonMunkholm/admissions/internal/core"
)

// NewSource builds the grid source selected by cfg.Sync.Source.
func NewSource(ctx context.Context, cfg *config.Config) (core.GridSource, error) {
	switch strings.ToLower(cfg.Sync.Source) {
	case config.SourceGoogle:
		return NewGoogleSource(ctx, cfg.Google.CredentialsFile, cfg.Sync.SheetRange)
	case config.SourceCSV:
		return NewCSVSource(cfg.Sync.CSVDir), nil
	default:
		return nil, fmt.Errorf("unknown sheet source %q", cfg.Sync.Source)
	}
}
