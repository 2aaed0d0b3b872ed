package ledger

import "strings"

// Column names of the fixed ledger schema, in store order.
const (
	ColSeq       = "No."
	ColTimestamp = "Tanggal"
	ColActor     = "User ID"
	ColAccount   = "Bank/EWallet"
	ColNote      = "Keterangan"
	ColCredit    = "Credit"
	ColDebit     = "Debit"
	ColAggregate = "Saldo Akhir"

	// legacyBalancePrefix is accepted in front of an account name for
	// per-account balance columns written by older sheet layouts.
	legacyBalancePrefix = "Saldo Akhir "
)

// DateFormat is the timestamp layout written to the store.
const DateFormat = "02/01/2006 15:04:05"

// Sentinel actor/account pair that marks a reset record in the store.
const (
	ResetActor   = "SYSTEM"
	ResetAccount = "SALDO AWAL"
)

// fixedColumns precede the per-account balance columns.
var fixedColumns = []string{
	ColSeq, ColTimestamp, ColActor, ColAccount, ColNote, ColCredit, ColDebit, ColAggregate,
}

// DefaultAccounts is the tracked set of banks and e-wallets.
var DefaultAccounts = Accounts{
	"BCA", "Mandiri", "BNI", "BRI", "Cimb Niaga", "BTN", "Danamon",
	"DANA", "OVO", "GOPAY", "LINK AJA",
}

// Accounts is the fixed, ordered set of tracked accounts.
type Accounts []string

// Index returns the position of name in the set, or -1.
func (a Accounts) Index(name string) int {
	name = strings.TrimSpace(name)
	for i, acct := range a {
		if acct == name {
			return i
		}
	}
	return -1
}

// Contains reports whether name is a tracked account.
func (a Accounts) Contains(name string) bool {
	return a.Index(name) >= 0
}

// Schema describes the column layout of the authoritative store.
type Schema struct {
	Accounts Accounts
}

// NewSchema returns a schema over the given accounts.
func NewSchema(accounts Accounts) Schema {
	return Schema{Accounts: accounts}
}

// Headers returns the column names in store order.
func (s Schema) Headers() []string {
	h := make([]string, 0, s.Width())
	h = append(h, fixedColumns...)
	h = append(h, s.Accounts...)
	return h
}

// Width is the number of columns a row must have.
func (s Schema) Width() int {
	return len(fixedColumns) + len(s.Accounts)
}

// MatchesHeader reports whether header is exactly the schema's header row.
func (s Schema) MatchesHeader(header []string) bool {
	want := s.Headers()
	if len(header) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(header[i]) != want[i] {
			return false
		}
	}
	return true
}
