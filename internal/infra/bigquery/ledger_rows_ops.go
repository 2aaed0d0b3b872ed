package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// TableRef names a table by project, dataset, and table id.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// FullName returns the backquoted name for use in SQL.
func (t TableRef) FullName() string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.DatasetID, t.TableID)
}

func (t TableRef) handle(client *bigquery.Client) *bigquery.Table {
	return client.DatasetInProject(t.ProjectID, t.DatasetID).Table(t.TableID)
}

// EnsureTableWithClient creates the table with a schema inferred from row
// when it does not exist yet.
func EnsureTableWithClient(ctx context.Context, client *bigquery.Client, table TableRef, row any) error {
	t := table.handle(client)
	_, err := t.Metadata(ctx)
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(row)
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	if err := t.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// InsertLedgerRowsWithClient streams rows into the ledger table.
func InsertLedgerRowsWithClient(ctx context.Context, client *bigquery.Client, table TableRef, rows []*LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := table.handle(client).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertLedgerRows: inserting rows: %w", err)
	}

	return nil
}

// ListLedgerRowsWithClient returns all ledger rows in ledger order.
func ListLedgerRowsWithClient(ctx context.Context, client *bigquery.Client, table TableRef) ([]*LedgerRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			row_id,
			batch_index,
			seq,
			recorded_at,
			actor_id,
			account_id,
			note,
			credit,
			debit,
			aggregate,
			balances,
			inserted_ts
		FROM %s
		ORDER BY inserted_ts, batch_index
	`, table.FullName()))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLedgerRows: query read: %w", err)
	}

	var rows []*LedgerRow
	for {
		var r LedgerRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListLedgerRows: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// InsertSyncRunWithClient records a finished run.
func InsertSyncRunWithClient(ctx context.Context, client *bigquery.Client, table TableRef, row *SyncRunRow) error {
	const maxLen = 2000
	if len(row.ErrorMessage) > maxLen {
		row.ErrorMessage = row.ErrorMessage[:maxLen]
	}

	if err := table.handle(client).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertSyncRun: inserting row: %w", err)
	}
	return nil
}
