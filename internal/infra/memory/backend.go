// Package memory is an in-process ledger store used by tests and by local
// runs with LEDGER_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Backend keeps a grid in memory and is safe for concurrent use.
type Backend struct {
	mu    sync.RWMutex
	grid  [][]any
	reads int
}

// New returns a backend seeded with a copy of grid.
func New(grid [][]any) *Backend {
	return &Backend{grid: copyGrid(grid)}
}

// ReadGrid returns a copy of the stored grid.
func (b *Backend) ReadGrid(ctx context.Context) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	return copyGrid(b.grid), nil
}

// AppendRows appends copies of rows.
func (b *Backend) AppendRows(ctx context.Context, rows [][]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grid = append(b.grid, copyGrid(rows)...)
	return nil
}

// Set overwrites a single cell, growing the row if needed. It stands in for
// a person editing the sheet directly.
func (b *Backend) Set(row, col int, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if row < 0 || row >= len(b.grid) {
		return fmt.Errorf("Set: row %d out of range", row)
	}
	for len(b.grid[row]) <= col {
		b.grid[row] = append(b.grid[row], nil)
	}
	b.grid[row][col] = v
	return nil
}

// Replace swaps the whole grid.
func (b *Backend) Replace(grid [][]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.grid = copyGrid(grid)
}

// Reads returns how many times the grid has been read.
func (b *Backend) Reads() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reads
}

func copyGrid(grid [][]any) [][]any {
	if grid == nil {
		return nil
	}
	out := make([][]any, len(grid))
	for i, row := range grid {
		out[i] = append([]any(nil), row...)
	}
	return out
}
