package gcs

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// mockObjectStore is a mock implementation of ObjectStore for testing.
type mockObjectStore struct {
	data       []byte
	generation int64
	conflicts  int
	writes     int
	readErr    error
}

func (m *mockObjectStore) Read(ctx context.Context) ([]byte, int64, error) {
	if m.readErr != nil {
		return nil, 0, m.readErr
	}
	return append([]byte(nil), m.data...), m.generation, nil
}

func (m *mockObjectStore) Write(ctx context.Context, data []byte, generation int64) error {
	m.writes++
	if m.conflicts > 0 {
		m.conflicts--
		m.generation++
		return ErrConflict
	}
	if generation != m.generation {
		return ErrConflict
	}
	m.data = append([]byte(nil), data...)
	m.generation++
	return nil
}

func TestBackend_AppendThenRead(t *testing.T) {
	obj := &mockObjectStore{}
	b := NewBackend(obj)
	ctx := context.Background()

	grid, err := b.ReadGrid(ctx)
	if err != nil || len(grid) != 0 {
		t.Fatalf("ReadGrid() on missing object = %v, %v", grid, err)
	}

	if err := b.AppendRows(ctx, [][]any{{"No.", "Keterangan", "Credit"}}); err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}
	if err := b.AppendRows(ctx, [][]any{{1, "makan, minum", 1500.0}, {2, "", nil}}); err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}

	got, err := b.ReadGrid(ctx)
	if err != nil {
		t.Fatalf("ReadGrid() error: %v", err)
	}
	want := [][]any{
		{"No.", "Keterangan", "Credit"},
		{"1", "makan, minum", "1500"},
		{"2", "", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestBackend_ThreeFractionDigitsSurviveRoundTrip(t *testing.T) {
	obj := &mockObjectStore{}
	b := NewBackend(obj)
	ctx := context.Background()

	row := []any{1234.567, decimal.RequireFromString("-0.125"), 1500.5, 1000.0}
	if err := b.AppendRows(ctx, [][]any{row}); err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}
	if want := "1234.5670,-0.1250,1500.5,1000\n"; string(obj.data) != want {
		t.Errorf("data = %q, want %q", obj.data, want)
	}

	grid, err := b.ReadGrid(ctx)
	if err != nil {
		t.Fatalf("ReadGrid() error: %v", err)
	}
	norm := amount.New(3)
	want := []string{"1234.567", "-0.125", "1500.5", "1000"}
	for i, cell := range grid[0] {
		if got := norm.Normalize(cell).String(); got != want[i] {
			t.Errorf("cell %d: Normalize(%q) = %s, want %s", i, cell, got, want[i])
		}
	}
}

func TestBackend_AppendRetriesOnConflict(t *testing.T) {
	obj := &mockObjectStore{data: []byte("No.\n"), generation: 1, conflicts: 2}
	b := NewBackend(obj)

	if err := b.AppendRows(context.Background(), [][]any{{1}}); err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}
	if obj.writes != 3 {
		t.Errorf("writes = %d, want 3", obj.writes)
	}
	if string(obj.data) != "No.\n1\n" {
		t.Errorf("data = %q", obj.data)
	}
}

func TestBackend_AppendGivesUp(t *testing.T) {
	obj := &mockObjectStore{conflicts: maxWriteAttempts}
	err := NewBackend(obj).AppendRows(context.Background(), [][]any{{1}})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestBackend_ReadError(t *testing.T) {
	obj := &mockObjectStore{readErr: errors.New("permission denied")}
	if _, err := NewBackend(obj).ReadGrid(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
