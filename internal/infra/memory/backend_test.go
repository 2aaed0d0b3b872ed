package memory

import (
	"context"
	"testing"
)

func TestBackend_ReadReturnsCopy(t *testing.T) {
	b := New([][]any{{"No."}, {1}})

	grid, err := b.ReadGrid(context.Background())
	if err != nil {
		t.Fatalf("ReadGrid() error: %v", err)
	}
	grid[1][0] = 99

	again, _ := b.ReadGrid(context.Background())
	if again[1][0] != 1 {
		t.Errorf("mutating a read grid changed the store: %v", again[1][0])
	}
	if b.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", b.Reads())
	}
}

func TestBackend_AppendAndSet(t *testing.T) {
	b := New(nil)
	ctx := context.Background()

	if err := b.AppendRows(ctx, [][]any{{"No.", "Credit"}, {1, 500.0}}); err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}
	if err := b.Set(1, 3, "x"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := b.Set(5, 0, "x"); err == nil {
		t.Error("Set() out of range should fail")
	}

	grid, _ := b.ReadGrid(ctx)
	if len(grid) != 2 || len(grid[1]) != 4 || grid[1][3] != "x" {
		t.Errorf("unexpected grid %v", grid)
	}
}

func TestBackend_CancelledContext(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.ReadGrid(ctx); err == nil {
		t.Error("ReadGrid() with cancelled context should fail")
	}
	if err := b.AppendRows(ctx, [][]any{{1}}); err == nil {
		t.Error("AppendRows() with cancelled context should fail")
	}
}
