package main

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

func TestNormalize(t *testing.T) {
	var buf bytes.Buffer
	if err := normalize(&buf, amount.New(0), []string{"Rp 1.250.000", "abc"}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "1250000") {
		t.Errorf("line 0 = %q, want 1250000", lines[0])
	}
	if !strings.Contains(lines[1], "invalid") {
		t.Errorf("line 1 = %q, want invalid", lines[1])
	}
}

func TestPrintBalances(t *testing.T) {
	accounts := ledger.Accounts{"BCA", "OVO"}
	snap := &ledger.Snapshot{
		Accounts: accounts,
		Checksum: "abc123",
		Records: []ledger.Record{{
			Seq:       1,
			Credit:    decimal.NewFromInt(150000),
			Debit:     decimal.Zero,
			Balances:  []decimal.Decimal{decimal.NewFromInt(100000), decimal.NewFromInt(50000)},
			Aggregate: decimal.NewFromInt(150000),
		}},
	}

	var buf bytes.Buffer
	if err := printBalances(&buf, snap, accounts, amount.NewFormatter("IDR", 0)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"BCA", "100.000", "50.000", "150.000", "Rows", "abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  subcommands.Command
		args []string
	}{
		{name: "add without amount", cmd: &addCmd{}, args: []string{"-user", "budi", "-account", "BCA"}},
		{name: "transfer without target", cmd: &transferCmd{}, args: []string{"-from", "BCA", "-amount", "1"}},
		{name: "balance without equals", cmd: &balancesCmd{}, args: []string{"BCA"}},
		{name: "no balances", cmd: &balancesCmd{}},
		{name: "normalize nothing", cmd: &normalizeCmd{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet(tt.cmd.Name(), flag.ContinueOnError)
			tt.cmd.SetFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if got := tt.cmd.Execute(context.Background(), fs); got != subcommands.ExitUsageError {
				t.Errorf("Execute() = %v, want ExitUsageError", got)
			}
		})
	}
}
