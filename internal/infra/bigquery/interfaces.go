package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/saldo/internal/jobs"
)

// LedgerRowRepository defines the ledger table operations the backend needs.
// This interface enables mocking of BigQuery in tests.
type LedgerRowRepository interface {
	// InsertLedgerRows appends rows to the ledger table.
	InsertLedgerRows(ctx context.Context, rows []*LedgerRow) error

	// ListLedgerRows returns every row in ledger order.
	ListLedgerRows(ctx context.Context) ([]*LedgerRow, error)
}

// BigQueryLedgerRepository is the concrete implementation of
// LedgerRowRepository. It holds a shared BigQuery client.
type BigQueryLedgerRepository struct {
	client *bigquery.Client
	table  TableRef
}

// NewBigQueryLedgerRepository creates a repository for table, creating the
// table if it is missing.
func NewBigQueryLedgerRepository(ctx context.Context, table TableRef) (*BigQueryLedgerRepository, error) {
	client, err := bigquery.NewClient(ctx, table.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryLedgerRepository: creating client: %w", err)
	}
	if err := EnsureTableWithClient(ctx, client, table, LedgerRow{}); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewBigQueryLedgerRepository: %w", err)
	}
	return &BigQueryLedgerRepository{client: client, table: table}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryLedgerRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertLedgerRows delegates to InsertLedgerRowsWithClient with the shared client.
func (r *BigQueryLedgerRepository) InsertLedgerRows(ctx context.Context, rows []*LedgerRow) error {
	return InsertLedgerRowsWithClient(ctx, r.client, r.table, rows)
}

// ListLedgerRows delegates to ListLedgerRowsWithClient with the shared client.
func (r *BigQueryLedgerRepository) ListLedgerRows(ctx context.Context) ([]*LedgerRow, error) {
	return ListLedgerRowsWithClient(ctx, r.client, r.table)
}

// RunArchive stores finished runs in a BigQuery table.
type RunArchive struct {
	client *bigquery.Client
	table  TableRef
}

// NewRunArchive creates an archive writing to table, creating it if missing.
func NewRunArchive(ctx context.Context, table TableRef) (*RunArchive, error) {
	client, err := bigquery.NewClient(ctx, table.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewRunArchive: creating client: %w", err)
	}
	if err := EnsureTableWithClient(ctx, client, table, SyncRunRow{}); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRunArchive: %w", err)
	}
	return &RunArchive{client: client, table: table}, nil
}

// Close closes the BigQuery client connection.
func (a *RunArchive) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// ArchiveRun implements jobs.Archiver.
func (a *RunArchive) ArchiveRun(ctx context.Context, run *jobs.Run) error {
	return InsertSyncRunWithClient(ctx, a.client, a.table, SyncRunRowFromRun(run))
}

// SyncRunRowFromRun maps a run record to its table row.
func SyncRunRowFromRun(run *jobs.Run) *SyncRunRow {
	row := &SyncRunRow{
		RunID:        run.RunID,
		Type:         string(run.Type),
		Reason:       run.Reason,
		Checksum:     run.Checksum,
		Rows:         int64(run.Rows),
		Verdict:      run.Verdict,
		StartedTS:    run.StartedAt,
		Status:       string(run.Status),
		ErrorMessage: run.Error,
		Details:      run.Details,
	}
	if run.CompletedAt != nil {
		row.FinishedTS = bigquery.NullTimestamp{Timestamp: *run.CompletedAt, Valid: true}
	}
	return row
}

var (
	_ LedgerRowRepository = (*BigQueryLedgerRepository)(nil)
	_ jobs.Archiver       = (*RunArchive)(nil)
)
