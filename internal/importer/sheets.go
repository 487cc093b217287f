package importer

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetSource fetches raw cell grids from a Google spreadsheet so exports
// that never leave Drive can go through the same reconciliation pipeline as
// uploaded files.
type SheetSource struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// NewSheetSource builds a source for one spreadsheet. Credentials come in as
// client options (API key, credentials file, or ADC when none given).
func NewSheetSource(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetSource, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetSource{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Grid reads a range (e.g. "Transactions!A1:E") as a raw string grid.
func (s *SheetSource) Grid(ctx context.Context, readRange string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %q: %w", readRange, err)
	}
	grid := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		grid = append(grid, toStrings(row))
	}
	return grid, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}
