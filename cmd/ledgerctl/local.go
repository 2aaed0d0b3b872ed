package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/config"
	"github.com/dvloznov/saldo/internal/infra"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/google/subcommands"
)

// withStore opens the configured store directly, bypassing the API server.
func withStore(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, st *store.Adapter) error) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	st, closeFn, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	if err := fn(ctx, cfg, st); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type checksumCmd struct{}

func (*checksumCmd) Name() string     { return "checksum" }
func (*checksumCmd) Synopsis() string { return "print the checksum of the store content" }
func (*checksumCmd) Usage() string {
	return `ledgerctl [-env <file>] checksum

  Reads the store configured in the environment directly.
`
}
func (*checksumCmd) SetFlags(f *flag.FlagSet) {}

func (*checksumCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withStore(ctx, func(ctx context.Context, _ *config.Config, st *store.Adapter) error {
		sum, err := st.FetchChecksum(ctx)
		if err != nil {
			return err
		}
		fmt.Println(sum)
		return nil
	})
}

type recomputeCmd struct{}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "recompute final balances from the store without the server" }
func (*recomputeCmd) Usage() string {
	return `ledgerctl [-env <file>] recompute
`
}
func (*recomputeCmd) SetFlags(f *flag.FlagSet) {}

func (*recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withStore(ctx, func(ctx context.Context, cfg *config.Config, st *store.Adapter) error {
		fetched, err := st.FetchRows(ctx)
		if err != nil {
			return err
		}
		schema := cfg.Schema()
		snap := ledger.NewEngine(schema, cfg.Normalizer()).Recompute(fetched.Rows)
		snap.Checksum = string(fetched.Checksum)
		return printBalances(os.Stdout, snap, schema.Accounts, amount.NewFormatter(cfg.Currency, cfg.Precision))
	})
}

// printBalances writes the final balance of every account and the aggregate.
func printBalances(w io.Writer, snap *ledger.Snapshot, accounts ledger.Accounts, f amount.Formatter) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	balances := snap.LatestBalances(accounts)
	for i, acct := range accounts {
		fmt.Fprintf(tw, "%s\t%s\n", acct, f.Format(balances[i]))
	}
	totals := ledger.ComputeTotals(snap)
	fmt.Fprintf(tw, "Saldo Akhir\t%s\n", f.Format(totals.Balance))
	fmt.Fprintf(tw, "Rows\t%d\n", totals.Count)
	if snap.Checksum != "" {
		fmt.Fprintf(tw, "Checksum\t%s\n", snap.Checksum)
	}
	return tw.Flush()
}

type normalizeCmd struct {
	precision int
}

func (*normalizeCmd) Name() string     { return "normalize" }
func (*normalizeCmd) Synopsis() string { return "show how amount text is interpreted" }
func (*normalizeCmd) Usage() string {
	return `ledgerctl normalize [-precision <digits>] <amount>...
`
}
func (p *normalizeCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.precision, "precision", 0, "Fraction digits kept after rounding.")
}

func (p *normalizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, p.Usage())
		return subcommands.ExitUsageError
	}
	if err := normalize(os.Stdout, amount.New(int32(p.precision)), f.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// normalize prints each input next to its strict and lenient value.
func normalize(w io.Writer, norm amount.Normalizer, args []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, arg := range args {
		strict := "invalid"
		if d, err := norm.NormalizeStrict(arg); err == nil {
			strict = d.String()
		}
		fmt.Fprintf(tw, "%q\t%s\t%s\n", arg, norm.Normalize(arg), strict)
	}
	return tw.Flush()
}
