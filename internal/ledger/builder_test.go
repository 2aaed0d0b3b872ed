package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func fixedBuilder() RowBuilder {
	b := NewRowBuilder(NewSchema(testAccounts))
	b.Now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return b
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		field string
	}{
		{"valid credit", Entry{ActorID: "budi", AccountID: "BCA", Credit: d(10)}, ""},
		{"valid debit", Entry{ActorID: "budi", AccountID: "OVO", Debit: d(10)}, ""},
		{"missing actor", Entry{ActorID: "  ", AccountID: "BCA", Credit: d(10)}, "actor_id"},
		{"unknown account", Entry{ActorID: "budi", AccountID: "Jenius", Credit: d(10)}, "account_id"},
		{"negative", Entry{ActorID: "budi", AccountID: "BCA", Credit: d(-1)}, "amount"},
		{"both zero", Entry{ActorID: "budi", AccountID: "BCA"}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate(testAccounts)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestRowBuilder_MutationRowRoundTrips(t *testing.T) {
	b := fixedBuilder()
	e := testEngine()

	g := grid(resetRow(1000, 0, 0))
	snap := e.Recompute(RowsFromGrid(g))

	row, err := b.MutationRow(snap, Entry{ActorID: "budi", AccountID: "BCA", Credit: d(500), Note: "gaji"})
	if err != nil {
		t.Fatalf("MutationRow() error: %v", err)
	}
	if len(row) != b.Schema.Width() {
		t.Fatalf("row width = %d, want %d", len(row), b.Schema.Width())
	}
	if row[0] != 2 {
		t.Errorf("seq cell = %v, want 2", row[0])
	}
	if row[1] != "04/03/2025 05:06:07" {
		t.Errorf("timestamp cell = %v", row[1])
	}
	if row[7] != 1500.0 {
		t.Errorf("aggregate cell = %v, want 1500", row[7])
	}

	next := e.Recompute(RowsFromGrid(append(g, row)))
	last, _ := next.Last()
	if got := next.Balance(last, "BCA"); !got.Equal(d(1500)) {
		t.Errorf("BCA after append = %s, want 1500", got)
	}
	if last.Note != "gaji" || last.ActorID != "budi" {
		t.Errorf("unexpected record %+v", last)
	}
}

func TestRowBuilder_TransferRows(t *testing.T) {
	b := fixedBuilder()
	e := testEngine()

	g := grid(resetRow(1000, 200, 0))
	snap := e.Recompute(RowsFromGrid(g))

	rows, err := b.TransferRows(snap, "BCA", "OVO", d(300), "")
	if err != nil {
		t.Fatalf("TransferRows() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][4] != "Transfer BCA → OVO" {
		t.Errorf("default note = %v", rows[0][4])
	}

	next := e.Recompute(RowsFromGrid(append(g, rows...)))
	if next.Len() != 3 {
		t.Fatalf("Len() = %d", next.Len())
	}
	last, _ := next.Last()
	for acct, want := range map[string]int64{"BCA": 700, "Mandiri": 200, "OVO": 300} {
		if got := next.Balance(last, acct); !got.Equal(d(want)) {
			t.Errorf("%s = %s, want %d", acct, got, want)
		}
	}
	if !last.Aggregate.Equal(d(1200)) {
		t.Errorf("aggregate = %s, transfer must not change the total", last.Aggregate)
	}
	if next.Records[1].ActorID != ResetActor || next.Records[1].Kind != KindMutation {
		t.Errorf("transfer rows must be system mutations, got %+v", next.Records[1])
	}
}

func TestRowBuilder_TransferRowsInvalid(t *testing.T) {
	b := fixedBuilder()
	tests := []struct {
		name     string
		from, to string
		amount   decimal.Decimal
	}{
		{"same account", "BCA", "BCA", d(1)},
		{"zero amount", "BCA", "OVO", d(0)},
		{"unknown source", "Jenius", "OVO", d(1)},
		{"unknown destination", "BCA", "Jenius", d(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.TransferRows(nil, tt.from, tt.to, tt.amount, "")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestRowBuilder_ResetRow(t *testing.T) {
	b := fixedBuilder()
	e := testEngine()

	g := grid(resetRow(1000, 200, 50), mutationRow("BCA", 1, 0))
	snap := e.Recompute(RowsFromGrid(g))

	row, err := b.ResetRow(snap, map[string]decimal.Decimal{"Mandiri": d(75)}, "")
	if err != nil {
		t.Fatalf("ResetRow() error: %v", err)
	}
	if row[2] != ResetActor || row[3] != ResetAccount || row[4] != "Penyesuaian saldo awal" {
		t.Errorf("unexpected reset cells: %v", row[:5])
	}

	next := e.Recompute(RowsFromGrid(append(g, row)))
	last, _ := next.Last()
	if last.Kind != KindReset {
		t.Fatalf("Kind = %v", last.Kind)
	}
	if !last.Aggregate.Equal(d(75)) {
		t.Errorf("aggregate = %s, want 75", last.Aggregate)
	}

	if _, err := b.ResetRow(snap, map[string]decimal.Decimal{"Jenius": d(1)}, ""); err == nil {
		t.Error("ResetRow() with unknown account should fail")
	}
}

func TestRowBuilder_InitialRow(t *testing.T) {
	b := fixedBuilder()
	row := b.InitialRow()
	if len(row) != b.Schema.Width() {
		t.Fatalf("width = %d", len(row))
	}
	snap := testEngine().Recompute(RowsFromGrid(grid(row)))
	last, _ := snap.Last()
	if last.Kind != KindReset || !last.Aggregate.IsZero() || last.Note != "Inisialisasi" {
		t.Errorf("unexpected initial record %+v", last)
	}
}
