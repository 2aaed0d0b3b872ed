package bigquery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/google/uuid"
)

// Backend implements store.Backend on a typed BigQuery table. The table has
// no header row; ReadGrid synthesizes one from the schema. Amount cells are
// normalized on write since the columns are numeric.
type Backend struct {
	repo   LedgerRowRepository
	schema ledger.Schema
	norm   amount.Normalizer
	now    func() time.Time
}

// NewBackend returns a backend over repo.
func NewBackend(repo LedgerRowRepository, schema ledger.Schema, norm amount.Normalizer) *Backend {
	return &Backend{repo: repo, schema: schema, norm: norm, now: time.Now}
}

// ReadGrid returns the schema header followed by every stored row.
func (b *Backend) ReadGrid(ctx context.Context) ([][]any, error) {
	rows, err := b.repo.ListLedgerRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadGrid: %w", err)
	}

	headers := b.schema.Headers()
	grid := make([][]any, 0, len(rows)+1)
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	grid = append(grid, header)

	for _, r := range rows {
		grid = append(grid, b.toCells(r))
	}
	return grid, nil
}

// AppendRows inserts rows. A header row is recognized and skipped.
func (b *Backend) AppendRows(ctx context.Context, rows [][]any) error {
	insertedAt := b.now().UTC()
	header := ledger.NewHeader(b.schema.Headers())

	var out []*LedgerRow
	for _, cells := range rows {
		if isHeader(cells) {
			continue
		}
		r := b.fromCells(ledger.NewRawRow(header, cells))
		r.RowID = uuid.NewString()
		r.BatchIndex = int64(len(out))
		r.InsertedTS = insertedAt
		out = append(out, r)
	}
	if err := b.repo.InsertLedgerRows(ctx, out); err != nil {
		return fmt.Errorf("AppendRows: %w", err)
	}
	return nil
}

func (b *Backend) fromCells(row ledger.RawRow) *LedgerRow {
	r := &LedgerRow{
		Seq:        nullInt(row.Get(ledger.ColSeq)),
		RecordedAt: row.Text(ledger.ColTimestamp),
		ActorID:    row.Text(ledger.ColActor),
		AccountID:  row.Text(ledger.ColAccount),
		Note:       ledger.CellText(row.Get(ledger.ColNote)),
		Credit:     b.nullAmount(row.Get(ledger.ColCredit)),
		Debit:      b.nullAmount(row.Get(ledger.ColDebit)),
		Aggregate:  b.nullAmount(row.Get(ledger.ColAggregate)),
	}
	for _, acct := range b.schema.Accounts {
		r.Balances = append(r.Balances, BalanceCell{Account: acct, Amount: b.nullAmount(row.Balance(acct))})
	}
	return r
}

func (b *Backend) toCells(r *LedgerRow) []any {
	cells := make([]any, 0, b.schema.Width())
	var seq any
	if r.Seq.Valid {
		seq = r.Seq.Int64
	}
	cells = append(cells,
		seq,
		r.RecordedAt,
		r.ActorID,
		r.AccountID,
		r.Note,
		floatCell(r.Credit),
		floatCell(r.Debit),
		floatCell(r.Aggregate),
	)

	byAccount := make(map[string]bigquery.NullFloat64, len(r.Balances))
	for _, bc := range r.Balances {
		byAccount[bc.Account] = bc.Amount
	}
	for _, acct := range b.schema.Accounts {
		cells = append(cells, floatCell(byAccount[acct]))
	}
	return cells
}

func (b *Backend) nullAmount(v any) bigquery.NullFloat64 {
	if strings.TrimSpace(ledger.CellText(v)) == "" {
		return bigquery.NullFloat64{}
	}
	d, err := b.norm.NormalizeStrict(v)
	if err != nil {
		return bigquery.NullFloat64{}
	}
	return bigquery.NullFloat64{Float64: d.InexactFloat64(), Valid: true}
}

func floatCell(v bigquery.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func nullInt(v any) bigquery.NullInt64 {
	switch n := v.(type) {
	case int:
		return bigquery.NullInt64{Int64: int64(n), Valid: true}
	case int64:
		return bigquery.NullInt64{Int64: n, Valid: true}
	case float64:
		return bigquery.NullInt64{Int64: int64(n), Valid: true}
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return bigquery.NullInt64{}
		}
		return bigquery.NullInt64{Int64: i, Valid: true}
	}
	return bigquery.NullInt64{}
}

func isHeader(cells []any) bool {
	return len(cells) > 0 && ledger.CellText(cells[0]) == ledger.ColSeq
}
