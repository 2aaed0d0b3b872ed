package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// mockValuesService is a mock implementation of ValuesService for testing.
type mockValuesService struct {
	getFunc    func(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	appendFunc func(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

func (m *mockValuesService) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, spreadsheetID, rng)
	}
	return nil, nil
}

func (m *mockValuesService) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, spreadsheetID, rng, rows)
	}
	return nil
}

func TestBackend_ReadGrid(t *testing.T) {
	want := [][]any{{"No.", "Credit"}, {1.0, 500.0}}
	var gotID, gotRange string
	mock := &mockValuesService{
		getFunc: func(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
			gotID, gotRange = spreadsheetID, rng
			return want, nil
		},
	}

	b := NewBackend(mock, "sheet-123", "")
	grid, err := b.ReadGrid(context.Background())
	if err != nil {
		t.Fatalf("ReadGrid() error: %v", err)
	}
	if gotID != "sheet-123" || gotRange != "Sheet1" {
		t.Errorf("called with %q %q", gotID, gotRange)
	}
	if diff := cmp.Diff(want, grid); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestBackend_ReadGridError(t *testing.T) {
	mock := &mockValuesService{
		getFunc: func(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
			return nil, errors.New("403 forbidden")
		},
	}
	if _, err := NewBackend(mock, "id", "Ledger").ReadGrid(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBackend_AppendRowsEncodesCells(t *testing.T) {
	var sent [][]any
	mock := &mockValuesService{
		appendFunc: func(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
			if rng != "Ledger" {
				t.Errorf("range = %q", rng)
			}
			sent = rows
			return nil
		},
	}

	b := NewBackend(mock, "id", "Ledger")
	err := b.AppendRows(context.Background(), [][]any{
		{2, "budi", decimal.NewFromInt(1500), nil, 3.5},
	})
	if err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}
	want := [][]any{{2, "budi", 1500.0, "", 3.5}}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("sent rows mismatch (-want +got):\n%s", diff)
	}

	if err := b.AppendRows(context.Background(), nil); err != nil {
		t.Errorf("AppendRows(nil) error: %v", err)
	}
}
