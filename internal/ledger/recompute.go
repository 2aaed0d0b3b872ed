package ledger

import (
	"github.com/dvloznov/saldo/internal/amount"
	"github.com/shopspring/decimal"
)

// Engine derives running balances from raw rows. It holds configuration
// only; Recompute has no hidden state.
type Engine struct {
	Schema     Schema
	Normalizer amount.Normalizer
}

// NewEngine returns an Engine for schema with amounts rounded by norm.
func NewEngine(schema Schema, norm amount.Normalizer) Engine {
	return Engine{Schema: schema, Normalizer: norm}
}

// Decode converts one raw row into a record without balances.
func (e Engine) Decode(row RawRow) Record {
	actor := row.Text(ColActor)
	account := row.Text(ColAccount)
	return Record{
		Timestamp: row.Text(ColTimestamp),
		ActorID:   actor,
		AccountID: account,
		Note:      CellText(row.Get(ColNote)),
		Kind:      Classify(actor, account),
		Credit:    e.Normalizer.Normalize(row.Get(ColCredit)),
		Debit:     e.Normalizer.Normalize(row.Get(ColDebit)),
	}
}

// Recompute folds rows, in the given order, into a snapshot. Reset rows set
// every balance from their own per-account cells; mutation rows add
// credit minus debit to their account if it is tracked. Sequence numbers
// are reassigned from 1.
func (e Engine) Recompute(rows []RawRow) *Snapshot {
	accounts := e.Schema.Accounts
	running := make([]decimal.Decimal, len(accounts))
	for i := range running {
		running[i] = decimal.Zero
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := e.Decode(row)

		switch rec.Kind {
		case KindReset:
			for j, acct := range accounts {
				running[j] = e.Normalizer.Normalize(row.Balance(acct))
			}
		case KindMutation:
			if j := accounts.Index(rec.AccountID); j >= 0 {
				running[j] = running[j].Add(rec.Credit).Sub(rec.Debit)
			}
		}

		rec.Seq = i + 1
		rec.Balances = append([]decimal.Decimal(nil), running...)
		rec.Aggregate = sum(rec.Balances)
		records = append(records, rec)
	}

	return &Snapshot{
		Accounts: append(Accounts(nil), accounts...),
		Records:  records,
	}
}

// Materialize encodes a snapshot back into schema-ordered rows. Recomputing
// the result yields the same records.
func (e Engine) Materialize(snap *Snapshot) []RawRow {
	header := NewHeader(e.Schema.Headers())
	if snap.Len() == 0 {
		return nil
	}

	rows := make([]RawRow, 0, len(snap.Records))
	for _, rec := range snap.Records {
		cells := make([]any, 0, e.Schema.Width())
		cells = append(cells,
			rec.Seq,
			rec.Timestamp,
			rec.ActorID,
			rec.AccountID,
			rec.Note,
			rec.Credit,
			rec.Debit,
			rec.Aggregate,
		)
		for _, acct := range e.Schema.Accounts {
			cells = append(cells, snap.Balance(rec, acct))
		}
		rows = append(rows, NewRawRow(header, cells))
	}
	return rows
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
