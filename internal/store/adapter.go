package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/logger"
)

// DefaultTimeout bounds a single call to the backend.
const DefaultTimeout = 15 * time.Second

// Adapter implements Source over a Backend. It bounds every call with a
// timeout, classifies failures, and checks row widths against the schema.
type Adapter struct {
	backend Backend
	schema  ledger.Schema
	timeout time.Duration
	name    string
}

// NewAdapter wraps backend. name is used in logs only.
func NewAdapter(name string, backend Backend, schema ledger.Schema, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		backend: backend,
		schema:  schema,
		timeout: timeout,
		name:    name,
	}
}

// Name returns the backend name.
func (a *Adapter) Name() string {
	return a.name
}

// Schema returns the schema rows are validated against.
func (a *Adapter) Schema() ledger.Schema {
	return a.schema
}

// FetchGrid reads the raw grid, header included.
func (a *Adapter) FetchGrid(ctx context.Context) ([][]any, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	grid, err := a.backend.ReadGrid(ctx)
	if err != nil {
		return nil, &TransientIOError{Op: a.name + " read", Err: err}
	}
	return grid, nil
}

// FetchChecksum implements Source.
func (a *Adapter) FetchChecksum(ctx context.Context) (Checksum, error) {
	grid, err := a.FetchGrid(ctx)
	if err != nil {
		return "", err
	}
	return ChecksumGrid(grid)
}

// FetchRows implements Source.
func (a *Adapter) FetchRows(ctx context.Context) (*Fetched, error) {
	log := logger.WithBackend(logger.FromContext(ctx), a.name)

	grid, err := a.FetchGrid(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := ChecksumGrid(grid)
	if err != nil {
		return nil, err
	}

	f := &Fetched{Checksum: sum}
	if len(grid) > 0 {
		f.Header = make([]string, len(grid[0]))
		for i, c := range grid[0] {
			f.Header[i] = ledger.CellText(c)
		}
		f.Rows = ledger.RowsFromGrid(grid)
	}

	log.Debug().
		Int("rows", len(f.Rows)).
		Str("checksum", string(sum)).
		Msg("Fetched ledger rows")

	return f, nil
}

// AppendRow implements Source.
func (a *Adapter) AppendRow(ctx context.Context, fields []any) error {
	return a.AppendRows(ctx, [][]any{fields})
}

// AppendRows appends rows in order in a single backend call.
func (a *Adapter) AppendRows(ctx context.Context, rows [][]any) error {
	width := a.schema.Width()
	for _, r := range rows {
		if len(r) != width {
			return &ledger.ValidationError{
				Field:  "fields",
				Reason: fmt.Sprintf("row has %d fields, schema has %d columns", len(r), width),
			}
		}
	}
	return a.appendRaw(ctx, rows)
}

func (a *Adapter) appendRaw(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.backend.AppendRows(ctx, rows); err != nil {
		var ve *ledger.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return &TransientIOError{Op: a.name + " append", Err: err}
	}
	return nil
}

// EnsureSchema prepares an empty store: it writes the header row when the
// grid is empty and the initial reset row when there are no data rows. A
// header that differs from the schema is only logged; lookups are by name.
// It reports whether anything was written.
func (a *Adapter) EnsureSchema(ctx context.Context, initial []any) (bool, error) {
	log := logger.WithBackend(logger.FromContext(ctx), a.name)

	grid, err := a.FetchGrid(ctx)
	if err != nil {
		return false, fmt.Errorf("EnsureSchema: %w", err)
	}

	var pending [][]any
	if len(grid) == 0 {
		headers := a.schema.Headers()
		header := make([]any, len(headers))
		for i, h := range headers {
			header[i] = h
		}
		pending = append(pending, header)
	} else {
		names := make([]string, len(grid[0]))
		for i, c := range grid[0] {
			names[i] = ledger.CellText(c)
		}
		if !a.schema.MatchesHeader(names) {
			log.Warn().
						Strs("header", names).
				Strs("expected", a.schema.Headers()).
				Msg("Store header differs from schema, columns are matched by name")
		}
	}
	if len(grid) <= 1 && initial != nil {
		pending = append(pending, initial)
	}
	if len(pending) == 0 {
		return false, nil
	}

	if err := a.appendRaw(ctx, pending); err != nil {
		return false, fmt.Errorf("EnsureSchema: %w", err)
	}
	log.Info().
		Int("rows", len(pending)).
		Msg("Initialized ledger store")
	return true, nil
}

var _ Source = (*Adapter)(nil)
