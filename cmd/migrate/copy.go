package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/logger"
	"github.com/dvloznov/saldo/internal/parity"
	"github.com/dvloznov/saldo/internal/store"
)

// batchSize bounds the rows sent in one append call.
const batchSize = 500

// ErrDriftAfterCopy is returned when the destination does not recompute to
// the same ledger as the source.
var ErrDriftAfterCopy = errors.New("destination differs from source after copy")

// Store is the side of a migration: a source or a destination.
type Store interface {
	store.Source
	FetchGrid(ctx context.Context) ([][]any, error)
	AppendRows(ctx context.Context, rows [][]any) error
	EnsureSchema(ctx context.Context, initial []any) (bool, error)
}

// Options controls a copy.
type Options struct {
	// Recompute writes recomputed running balances instead of the source's
	// balance cells.
	Recompute bool
	// DryRun reads and validates both sides without writing.
	DryRun bool
	// Currency is used to render amounts in drift details.
	Currency string
}

// Result describes a finished copy.
type Result struct {
	Rows    int
	Details []string
}

// copyLedger copies every row of src into the empty dst, then recomputes
// both sides and compares them.
func copyLedger(ctx context.Context, src, dst Store, schema ledger.Schema, norm amount.Normalizer, opts Options) (*Result, error) {
	log := logger.FromContext(ctx)
	engine := ledger.NewEngine(schema, norm)

	fetched, err := src.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("copyLedger: reading source: %w", err)
	}
	if len(fetched.Rows) == 0 {
		return nil, fmt.Errorf("copyLedger: source has no rows")
	}

	grid, err := dst.FetchGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("copyLedger: reading destination: %w", err)
	}
	if len(grid) > 1 {
		return nil, fmt.Errorf("copyLedger: destination already holds %d rows", len(grid)-1)
	}

	srcSnap := engine.Recompute(fetched.Rows)
	rows := canonicalRows(schema, fetched.Rows)
	if opts.Recompute {
		rows = cellsOf(engine.Materialize(srcSnap))
	}

	log.Info().
		Int("rows", len(rows)).
		Str("checksum", string(fetched.Checksum)).
		Bool("recompute", opts.Recompute).
		Msg("Source read")

	if opts.DryRun {
		return &Result{Rows: len(rows)}, nil
	}

	if _, err := dst.EnsureSchema(ctx, nil); err != nil {
		return nil, fmt.Errorf("copyLedger: %w", err)
	}
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := dst.AppendRows(ctx, rows[start:end]); err != nil {
			return nil, fmt.Errorf("copyLedger: appending rows %d-%d: %w", start+1, end, err)
		}
		log.Debug().Int("written", end).Msg("Rows appended")
	}

	copied, err := dst.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("copyLedger: reading destination back: %w", err)
	}
	dstSnap := engine.Recompute(copied.Rows)

	formatter := amount.NewFormatter(opts.Currency, norm.Precision)
	details := parity.Compare(srcSnap, dstSnap, norm.SmallestUnit(), formatter.Format)
	res := &Result{Rows: len(rows), Details: details}
	if len(details) > 0 {
		return res, ErrDriftAfterCopy
	}

	log.Info().
		Int("rows", res.Rows).
		Str("checksum", string(copied.Checksum)).
		Msg("Ledger copied")
	return res, nil
}

// canonicalRows rearranges cells into schema order, looking them up by
// column name so source layouts with legacy or reordered columns still copy.
func canonicalRows(schema ledger.Schema, rows []ledger.RawRow) [][]any {
	fixed := schema.Headers()[:schema.Width()-len(schema.Accounts)]
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells := make([]any, 0, schema.Width())
		for _, name := range fixed {
			cells = append(cells, r.Get(name))
		}
		for _, acct := range schema.Accounts {
			cells = append(cells, r.Balance(acct))
		}
		out = append(out, cells)
	}
	return out
}

func cellsOf(rows []ledger.RawRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.Cells()
	}
	return out
}
