package sheets

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/admissions/internal/logging"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSource reads a fixed range from each spreadsheet.
type GoogleSource struct {
	svc        *sheets.Service
	sheetRange string
}

// NewGoogleSource authenticates with a service account key file.
func NewGoogleSource(ctx context.Context, credentialsFile, sheetRange string) (*GoogleSource, error) {
	return newGoogleSource(ctx, sheetRange,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
}

func newGoogleSource(ctx context.Context, sheetRange string, opts ...option.ClientOption) (*GoogleSource, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &GoogleSource{svc: svc, sheetRange: sheetRange}, nil
}

// ReadGrid fetches the configured range as formatted cell text.
func (g *GoogleSource) ReadGrid(ctx context.Context, spreadsheetID string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, g.sheetRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s!%s: %w", spreadsheetID, g.sheetRange, err)
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}

	logging.FromContext(ctx).Debug("sheet fetched",
		"spreadsheet_id", spreadsheetID,
		"range", resp.Range,
		"rows", len(grid),
	)
	return grid, nil
}
