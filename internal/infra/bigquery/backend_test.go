package bigquery

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// mockLedgerRowRepository is a mock implementation of LedgerRowRepository for testing.
type mockLedgerRowRepository struct {
	rows      []*LedgerRow
	insertErr error
	listErr   error
}

func (m *mockLedgerRowRepository) InsertLedgerRows(ctx context.Context, rows []*LedgerRow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *mockLedgerRowRepository) ListLedgerRows(ctx context.Context) ([]*LedgerRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rows, nil
}

var testSchema = ledger.NewSchema(ledger.Accounts{"BCA", "OVO"})

func TestBackend_EmptyTableHasHeader(t *testing.T) {
	b := NewBackend(&mockLedgerRowRepository{}, testSchema, amount.New(0))

	grid, err := b.ReadGrid(context.Background())
	if err != nil {
		t.Fatalf("ReadGrid() error: %v", err)
	}
	if len(grid) != 1 || len(grid[0]) != testSchema.Width() {
		t.Fatalf("grid = %v, want header only", grid)
	}
	if grid[0][0] != ledger.ColSeq || grid[0][8] != "BCA" {
		t.Errorf("unexpected header %v", grid[0])
	}
}

func TestBackend_AppendThenRead(t *testing.T) {
	repo := &mockLedgerRowRepository{}
	b := NewBackend(repo, testSchema, amount.New(0))
	b.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	header := make([]any, 0)
	for _, h := range testSchema.Headers() {
		header = append(header, h)
	}
	rows := [][]any{
		header,
		{1, "01/01/2025 08:00:00", "SYSTEM", "SALDO AWAL", "Inisialisasi", 0.0, 0.0, 1000.0, 1000.0, 0.0},
		{"2", "02/01/2025 09:00:00", "budi", "OVO", "topup", "Rp 50.000", "", decimal.NewFromInt(51000), 1000.0, 50000.0},
	}
	if err := b.AppendRows(context.Background(), rows); err != nil {
		t.Fatalf("AppendRows() error: %v", err)
	}

	if len(repo.rows) != 2 {
		t.Fatalf("inserted %d rows, header must be skipped", len(repo.rows))
	}
	if repo.rows[0].RowID == "" || repo.rows[0].RowID == repo.rows[1].RowID {
		t.Error("row ids must be unique and set")
	}
	if repo.rows[1].BatchIndex != 1 {
		t.Errorf("BatchIndex = %d, want 1", repo.rows[1].BatchIndex)
	}

	grid, err := b.ReadGrid(context.Background())
	if err != nil {
		t.Fatalf("ReadGrid() error: %v", err)
	}
	want := []any{int64(2), "02/01/2025 09:00:00", "budi", "OVO", "topup", 50000.0, nil, 51000.0, 1000.0, 50000.0}
	if diff := cmp.Diff(want, grid[2]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	// The recomputed ledger must be the same whichever side it is read from.
	e := ledger.NewEngine(testSchema, amount.New(0))
	fromSource := e.Recompute(ledger.RowsFromGrid(rows))
	fromTable := e.Recompute(ledger.RowsFromGrid(grid))
	if len(fromSource.Records) != len(fromTable.Records) {
		t.Fatalf("record counts differ")
	}
	last, _ := fromTable.Last()
	if !last.Aggregate.Equal(decimal.NewFromInt(51000)) {
		t.Errorf("aggregate = %s, want 51000", last.Aggregate)
	}
}

func TestBackend_Errors(t *testing.T) {
	repo := &mockLedgerRowRepository{listErr: errors.New("boom"), insertErr: errors.New("quota")}
	b := NewBackend(repo, testSchema, amount.New(0))

	if _, err := b.ReadGrid(context.Background()); err == nil {
		t.Error("ReadGrid() expected error")
	}
	if err := b.AppendRows(context.Background(), [][]any{{1}}); err == nil {
		t.Error("AppendRows() expected error")
	}
}

func TestSyncRunRowFromRun(t *testing.T) {
	started := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	done := started.Add(time.Second)
	run := &jobs.Run{
		RunID:       "r1",
		Type:        jobs.RunTypeParity,
		Status:      jobs.RunStatusCompleted,
		Verdict:     "drift",
		Details:     []string{"Row count differs"},
		StartedAt:   started,
		CompletedAt: &done,
	}

	row := SyncRunRowFromRun(run)
	want := &SyncRunRow{
		RunID:      "r1",
		Type:       "parity",
		Status:     "completed",
		Verdict:    "drift",
		Details:    []string{"Row count differs"},
		StartedTS:  started,
		FinishedTS: bigquery.NullTimestamp{Timestamp: done, Valid: true},
	}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Errorf("SyncRunRowFromRun() mismatch (-want +got):\n%s", diff)
	}
}
