package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// LedgerRow is one ledger line in the BigQuery table. Rows are ordered by
// inserted_ts, then batch_index.
type LedgerRow struct {
	RowID      string `bigquery:"row_id"`      // REQUIRED
	BatchIndex int64  `bigquery:"batch_index"` // REQUIRED, position within one append

	Seq        bigquery.NullInt64 `bigquery:"seq"`         // NULLABLE
	RecordedAt string             `bigquery:"recorded_at"` // NULLABLE, dd/mm/yyyy hh:mm:ss as entered

	ActorID   string `bigquery:"actor_id"`   // NULLABLE
	AccountID string `bigquery:"account_id"` // NULLABLE
	Note      string `bigquery:"note"`       // NULLABLE

	Credit    bigquery.NullFloat64 `bigquery:"credit"`    // NULLABLE
	Debit     bigquery.NullFloat64 `bigquery:"debit"`     // NULLABLE
	Aggregate bigquery.NullFloat64 `bigquery:"aggregate"` // NULLABLE

	Balances []BalanceCell `bigquery:"balances"` // REPEATED RECORD

	InsertedTS time.Time `bigquery:"inserted_ts"` // REQUIRED
}

// BalanceCell is the per-account balance column of a ledger row.
type BalanceCell struct {
	Account string               `bigquery:"account"`
	Amount  bigquery.NullFloat64 `bigquery:"amount"`
}

// SyncRunRow is one finished refresh, parity, or append run.
type SyncRunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED
	Type  string `bigquery:"type"`   // REQUIRED

	Reason   string `bigquery:"reason"`   // NULLABLE
	Checksum string `bigquery:"checksum"` // NULLABLE
	Rows     int64  `bigquery:"rows"`     // NULLABLE
	Verdict  string `bigquery:"verdict"`  // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // REQUIRED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	Details []string `bigquery:"details"` // REPEATED STRING
}
