package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tells how a record affects the running balances.
type Kind int

const (
	// KindMutation adds credit minus debit to a single account.
	KindMutation Kind = iota
	// KindReset overwrites every account balance from the record itself.
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindReset:
		return "reset"
	default:
		return "mutation"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "reset":
		*k = KindReset
	case "mutation":
		*k = KindMutation
	default:
		return fmt.Errorf("unknown record kind %q", text)
	}
	return nil
}

// Classify decides the kind of a fetched row. This is the only place where
// the sentinel actor/account text is interpreted.
func Classify(actor, account string) Kind {
	if strings.EqualFold(strings.TrimSpace(actor), ResetActor) &&
		strings.EqualFold(strings.TrimSpace(account), ResetAccount) {
		return KindReset
	}
	return KindMutation
}

// Record is one decoded ledger row with the balances after it was applied.
type Record struct {
	Seq       int               `json:"seq"`
	Timestamp string            `json:"timestamp"`
	ActorID   string            `json:"actor_id"`
	AccountID string            `json:"account_id"`
	Note      string            `json:"note"`
	Kind      Kind              `json:"kind"`
	Credit    decimal.Decimal   `json:"credit"`
	Debit     decimal.Decimal   `json:"debit"`
	Balances  []decimal.Decimal `json:"balances"`
	Aggregate decimal.Decimal   `json:"aggregate"`
}

// Time parses Timestamp with DateFormat in loc. ok is false for free-form text.
func (r Record) Time(loc *time.Location) (t time.Time, ok bool) {
	t, err := time.ParseInLocation(DateFormat, strings.TrimSpace(r.Timestamp), loc)
	return t, err == nil
}

// Snapshot is the ordered, fully recomputed ledger. It is never modified
// after construction; refreshes replace it as a whole.
type Snapshot struct {
	Accounts Accounts  `json:"accounts"`
	Records  []Record  `json:"records"`
	Checksum string    `json:"checksum,omitempty"`
	BuiltAt  time.Time `json:"built_at"`
}

// Len returns the number of records; a nil snapshot is empty.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Last returns the final record, or false when the snapshot is empty.
func (s *Snapshot) Last() (Record, bool) {
	if s.Len() == 0 {
		return Record{}, false
	}
	return s.Records[len(s.Records)-1], true
}

// Balance returns the balance of account in rec, zero for unknown accounts.
func (s *Snapshot) Balance(rec Record, account string) decimal.Decimal {
	i := s.Accounts.Index(account)
	if i < 0 || i >= len(rec.Balances) {
		return decimal.Zero
	}
	return rec.Balances[i]
}

// LatestBalances returns the final per-account balances, all zero when the
// snapshot is empty.
func (s *Snapshot) LatestBalances(accounts Accounts) []decimal.Decimal {
	out := make([]decimal.Decimal, len(accounts))
	for i := range out {
		out[i] = decimal.Zero
	}
	last, ok := s.Last()
	if !ok {
		return out
	}
	for i, acct := range accounts {
		out[i] = s.Balance(last, acct)
	}
	return out
}

// Tail returns the last n records (all of them when n <= 0).
func (s *Snapshot) Tail(n int) []Record {
	if s == nil {
		return nil
	}
	if n <= 0 || n >= len(s.Records) {
		return s.Records
	}
	return s.Records[len(s.Records)-n:]
}
