package store

import (
	"context"

	"github.com/dvloznov/saldo/internal/ledger"
)

// Source is the read/append contract the sync loop and the parity
// verifier consume.
type Source interface {
	// FetchChecksum returns the checksum of the current store content.
	FetchChecksum(ctx context.Context) (Checksum, error)

	// FetchRows returns all data rows in store order together with the
	// checksum of the grid they were decoded from.
	FetchRows(ctx context.Context) (*Fetched, error)

	// AppendRow appends one row of schema width at the end of the store.
	AppendRow(ctx context.Context, fields []any) error
}

// Fetched is one consistent read of the store.
type Fetched struct {
	Header   []string
	Rows     []ledger.RawRow
	Checksum Checksum
}

// Backend is the minimal capability a concrete store must offer. ReadGrid
// returns the whole sheet with the header as the first row, or an empty
// grid when nothing has been written yet.
type Backend interface {
	ReadGrid(ctx context.Context) ([][]any, error)
	AppendRows(ctx context.Context, rows [][]any) error
}
