package gcs

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/shopspring/decimal"
)

// maxWriteAttempts bounds read-modify-write retries on concurrent writers.
const maxWriteAttempts = 3

// Backend implements store.Backend on a CSV object. Every cell is stored
// as text; amounts are normalized when the ledger is recomputed.
type Backend struct {
	object ObjectStore
}

// NewBackend returns a backend over object.
func NewBackend(object ObjectStore) *Backend {
	return &Backend{object: object}
}

// ReadGrid parses the whole object.
func (b *Backend) ReadGrid(ctx context.Context) ([][]any, error) {
	data, _, err := b.object.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadGrid: %w", err)
	}
	return decodeCSV(data)
}

// AppendRows rewrites the object with rows added, guarded by the object
// generation so a concurrent writer is never overwritten.
func (b *Backend) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		data, gen, err := b.object.Read(ctx)
		if err != nil {
			return fmt.Errorf("AppendRows: %w", err)
		}

		var buf bytes.Buffer
		buf.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			buf.WriteByte('\n')
		}
		w := csv.NewWriter(&buf)
		for _, row := range rows {
			record := make([]string, len(row))
			for i, c := range row {
				record[i] = cellText(c)
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("AppendRows: encoding row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("AppendRows: encoding rows: %w", err)
		}

		err = b.object.Write(ctx, buf.Bytes(), gen)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return fmt.Errorf("AppendRows: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("AppendRows: giving up after %d attempts: %w", maxWriteAttempts, lastErr)
}

// cellText renders a cell for the CSV. A number with exactly three
// fraction digits gets a trailing zero, otherwise the normalizer would read
// "1234.567" back as thousands grouping.
func cellText(c any) string {
	text := ledger.CellText(c)
	switch c.(type) {
	case float64, float32, decimal.Decimal:
		if i := strings.IndexByte(text, '.'); i >= 0 && len(text)-i-1 == 3 {
			return text + "0"
		}
	}
	return text
}

func decodeCSV(data []byte) ([][]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return [][]any{}, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decodeCSV: %w", err)
	}
	grid := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, c := range rec {
			row[j] = c
		}
		grid[i] = row
	}
	return grid, nil
}
