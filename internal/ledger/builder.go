package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed input to a write operation. It is
// returned to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Entry is a single credit or debit against one account.
type Entry struct {
	ActorID   string          `json:"actor_id"`
	AccountID string          `json:"account_id"`
	Credit    decimal.Decimal `json:"credit"`
	Debit     decimal.Decimal `json:"debit"`
	Note      string          `json:"note"`
}

// Validate checks an entry against the tracked accounts.
func (e Entry) Validate(accounts Accounts) error {
	if strings.TrimSpace(e.ActorID) == "" {
		return &ValidationError{Field: "actor_id", Reason: "required"}
	}
	if !accounts.Contains(e.AccountID) {
		return &ValidationError{Field: "account_id", Reason: fmt.Sprintf("unknown account %q", e.AccountID)}
	}
	if e.Credit.IsNegative() || e.Debit.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "credit and debit must not be negative"}
	}
	if e.Credit.IsZero() && e.Debit.IsZero() {
		return &ValidationError{Field: "amount", Reason: "credit or debit must be greater than zero"}
	}
	if Classify(e.ActorID, e.AccountID) == KindReset {
		return &ValidationError{Field: "account_id", Reason: "reserved for balance resets"}
	}
	return nil
}

// RowBuilder produces store rows that continue from a snapshot.
type RowBuilder struct {
	Schema Schema
	Now    func() time.Time
}

// NewRowBuilder returns a builder using the wall clock.
func NewRowBuilder(schema Schema) RowBuilder {
	return RowBuilder{Schema: schema, Now: time.Now}
}

// MutationRow builds the row for e on top of prev. The per-account and
// aggregate cells carry the expected balances; recomputation does not
// depend on them.
func (b RowBuilder) MutationRow(prev *Snapshot, e Entry) ([]any, error) {
	if err := e.Validate(b.Schema.Accounts); err != nil {
		return nil, err
	}
	balances := prev.LatestBalances(b.Schema.Accounts)
	i := b.Schema.Accounts.Index(e.AccountID)
	balances[i] = balances[i].Add(e.Credit).Sub(e.Debit)

	return b.row(prev.Len()+1, strings.TrimSpace(e.ActorID), strings.TrimSpace(e.AccountID), e.Note, e.Credit, e.Debit, balances), nil
}

// TransferRows builds a debit on from followed by a credit on to.
func (b RowBuilder) TransferRows(prev *Snapshot, from, to string, amt decimal.Decimal, note string) ([][]any, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == to {
		return nil, &ValidationError{Field: "to", Reason: "source and destination must differ"}
	}
	if !amt.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if note == "" {
		note = fmt.Sprintf("Transfer %s → %s", from, to)
	}

	out := Entry{ActorID: ResetActor, AccountID: from, Debit: amt, Note: note}
	in := Entry{ActorID: ResetActor, AccountID: to, Credit: amt, Note: note}
	for _, e := range []Entry{out, in} {
		if err := e.Validate(b.Schema.Accounts); err != nil {
			return nil, err
		}
	}

	balances := prev.LatestBalances(b.Schema.Accounts)
	fi, ti := b.Schema.Accounts.Index(from), b.Schema.Accounts.Index(to)

	balances[fi] = balances[fi].Sub(amt)
	first := b.row(prev.Len()+1, ResetActor, from, note, decimal.Zero, amt, balances)
	balances[ti] = balances[ti].Add(amt)
	second := b.row(prev.Len()+2, ResetActor, to, note, amt, decimal.Zero, balances)

	return [][]any{first, second}, nil
}

// ResetRow builds a reset record that sets every tracked balance. Accounts
// missing from balances are set to zero.
func (b RowBuilder) ResetRow(prev *Snapshot, balances map[string]decimal.Decimal, note string) ([]any, error) {
	values := make([]decimal.Decimal, len(b.Schema.Accounts))
	for i := range values {
		values[i] = decimal.Zero
	}
	for name, v := range balances {
		i := b.Schema.Accounts.Index(name)
		if i < 0 {
			return nil, &ValidationError{Field: "balances", Reason: fmt.Sprintf("unknown account %q", name)}
		}
		values[i] = v
	}
	if note == "" {
		note = "Penyesuaian saldo awal"
	}
	return b.row(prev.Len()+1, ResetActor, ResetAccount, note, decimal.Zero, decimal.Zero, values), nil
}

// InitialRow is the zero reset record written to an empty store.
func (b RowBuilder) InitialRow() []any {
	zeros := make([]decimal.Decimal, len(b.Schema.Accounts))
	for i := range zeros {
		zeros[i] = decimal.Zero
	}
	return b.row(1, ResetActor, ResetAccount, "Inisialisasi", decimal.Zero, decimal.Zero, zeros)
}

// row lays cells out in schema order. Amounts are written as numbers so the
// store keeps them numeric.
func (b RowBuilder) row(seq int, actor, account, note string, credit, debit decimal.Decimal, balances []decimal.Decimal) []any {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	cells := make([]any, 0, b.Schema.Width())
	cells = append(cells,
		seq,
		now().Format(DateFormat),
		actor,
		account,
		note,
		credit.InexactFloat64(),
		debit.InexactFloat64(),
		sum(balances).InexactFloat64(),
	)
	for _, v := range balances {
		cells = append(cells, v.InexactFloat64())
	}
	return cells
}
