package sheets

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Backend implements store.Backend over one worksheet.
type Backend struct {
	values        ValuesService
	spreadsheetID string
	sheet         string
}

// NewBackend returns a backend for the worksheet named sheet.
func NewBackend(values ValuesService, spreadsheetID, sheet string) *Backend {
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &Backend{values: values, spreadsheetID: spreadsheetID, sheet: sheet}
}

// ReadGrid returns the whole worksheet. Trailing empty cells and rows are
// omitted by the API.
func (b *Backend) ReadGrid(ctx context.Context) ([][]any, error) {
	grid, err := b.values.Get(ctx, b.spreadsheetID, b.sheet)
	if err != nil {
		return nil, fmt.Errorf("ReadGrid: %w", err)
	}
	return grid, nil
}

// AppendRows appends rows after the last non-empty row.
func (b *Backend) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := b.values.Append(ctx, b.spreadsheetID, b.sheet, encodeRows(rows)); err != nil {
		return fmt.Errorf("AppendRows: %w", err)
	}
	return nil
}

// encodeRows converts cells the JSON API would otherwise send as strings.
func encodeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			switch v := c.(type) {
			case decimal.Decimal:
				cells[j] = v.InexactFloat64()
			case nil:
				cells[j] = ""
			default:
				cells[j] = v
			}
		}
		out[i] = cells
	}
	return out
}
