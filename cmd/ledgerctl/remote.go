package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/saldo/internal/api/client"
	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/google/subcommands"
)

// withClient runs fn with an API client and maps its error to an exit status.
func withClient(ctx context.Context, fn func(ctx context.Context, c *client.Client) error) subcommands.ExitStatus {
	c, err := newClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := fn(ctx, c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show connection, checksum and parity state" }
func (*statusCmd) Usage() string {
	return `ledgerctl status
`
}
func (*statusCmd) SetFlags(f *flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		st, err := c.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "connected\t%t\n", st.Connected)
		fmt.Fprintf(w, "rows\t%d\n", st.Rows)
		fmt.Fprintf(w, "checksum\t%s\n", st.LastChecksum)
		fmt.Fprintf(w, "last fetch\t%s\n", formatTime(st.LastFetch))
		fmt.Fprintf(w, "parity\t%s (%s)\n", st.Parity, formatTime(st.ParityCheckedAt))
		if st.LastError != "" {
			fmt.Fprintf(w, "last error\t%s\n", st.LastError)
		}
		for _, d := range st.ParityDetails {
			fmt.Fprintf(w, "\t%s\n", d)
		}
		return w.Flush()
	})
}

type snapshotCmd struct {
	tail int
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "print the cached ledger with running balances" }
func (*snapshotCmd) Usage() string {
	return `ledgerctl snapshot [-n <rows>]
`
}
func (p *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.tail, "n", 20, "Number of most recent rows to print (0 for all).")
}

func (p *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		snap, err := c.Snapshot(ctx, p.tail)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "No.\tTanggal\tUser ID\tBank/EWallet\tCredit\tDebit\tSaldo Akhir\t%s\t\n", strings.Join(snap.Accounts, "\t"))
		for _, rec := range snap.Records {
			balances := make([]string, len(rec.Balances))
			for i, b := range rec.Balances {
				balances[i] = b.String()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				rec.Seq, rec.Timestamp, rec.ActorID, rec.AccountID,
				rec.Credit, rec.Debit, rec.Aggregate, strings.Join(balances, "\t"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("%d of %d rows, checksum %s\n", len(snap.Records), snap.Count, snap.Checksum)
		return nil
	})
}

type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "reload the ledger from the store now" }
func (*refreshCmd) Usage() string {
	return `ledgerctl refresh
`
}
func (*refreshCmd) SetFlags(f *flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		res, err := c.Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d rows, checksum %s\n", res.Rows, res.Checksum)
		return nil
	})
}

type parityCmd struct{}

func (*parityCmd) Name() string     { return "parity" }
func (*parityCmd) Synopsis() string { return "compare the cache with a fresh read of the store" }
func (*parityCmd) Usage() string {
	return `ledgerctl parity

  Exits with status 1 when drift is found.
`
}
func (*parityCmd) SetFlags(f *flag.FlagSet) {}

func (*parityCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		res, err := c.Parity(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Parity: %s\n", res.Verdict)
		for _, d := range res.Details {
			fmt.Printf("  %s\n", d)
		}
		if len(res.Details) > 0 {
			return fmt.Errorf("%d differences", len(res.Details))
		}
		return nil
	})
}

type addCmd struct {
	actor   string
	account string
	credit  string
	debit   string
	note    string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "append a credit or debit" }
func (*addCmd) Usage() string {
	return `ledgerctl add -user <id> -account <name> (-credit <amount> | -debit <amount>) [-note <text>]

  Amounts accept grouping and currency marks, e.g. "Rp 1.250.000".
`
}
func (p *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.actor, "user", "", "User ID recording the transaction.")
	f.StringVar(&p.account, "account", "", "Account to credit or debit.")
	f.StringVar(&p.credit, "credit", "", "Amount added to the account.")
	f.StringVar(&p.debit, "debit", "", "Amount taken from the account.")
	f.StringVar(&p.note, "note", "", "Free-text description.")
}

func (p *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.actor == "" || p.account == "" || (p.credit == "" && p.debit == "") {
		fmt.Fprint(os.Stderr, p.Usage())
		return subcommands.ExitUsageError
	}
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		res, err := c.AddTransaction(ctx, client.TransactionRequest{
			ActorID:   p.actor,
			AccountID: p.account,
			Credit:    p.credit,
			Debit:     p.debit,
			Note:      p.note,
		})
		if err != nil {
			return err
		}
		printAppended(res)
		return nil
	})
}

type transferCmd struct {
	from   string
	to     string
	amount string
	note   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return `ledgerctl transfer -from <account> -to <account> -amount <amount> [-note <text>]
`
}
func (p *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.from, "from", "", "Account debited.")
	f.StringVar(&p.to, "to", "", "Account credited.")
	f.StringVar(&p.amount, "amount", "", "Amount to move.")
	f.StringVar(&p.note, "note", "", "Free-text description.")
}

func (p *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.from == "" || p.to == "" || p.amount == "" {
		fmt.Fprint(os.Stderr, p.Usage())
		return subcommands.ExitUsageError
	}
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		res, err := c.Transfer(ctx, client.TransferRequest{From: p.from, To: p.to, Amount: p.amount, Note: p.note})
		if err != nil {
			return err
		}
		printAppended(res)
		return nil
	})
}

type balancesCmd struct {
	note string
}

func (*balancesCmd) Name() string     { return "set-balances" }
func (*balancesCmd) Synopsis() string { return "record a balance reset" }
func (*balancesCmd) Usage() string {
	return `ledgerctl set-balances [-note <text>] <account>=<amount>...

  Accounts that are not listed are reset to zero.
`
}
func (p *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.note, "note", "", "Free-text description.")
}

func (p *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	balances := make(map[string]string, f.NArg())
	for _, arg := range f.Args() {
		acct, amt, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(acct) == "" {
			fmt.Fprintf(os.Stderr, "invalid balance %q, want <account>=<amount>\n", arg)
			return subcommands.ExitUsageError
		}
		balances[strings.TrimSpace(acct)] = amt
	}
	if len(balances) == 0 {
		fmt.Fprint(os.Stderr, p.Usage())
		return subcommands.ExitUsageError
	}
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		res, err := c.SetBalances(ctx, client.BalancesRequest{Balances: balances, Note: p.note})
		if err != nil {
			return err
		}
		printAppended(res)
		return nil
	})
}

type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show totals, balances, low-balance warnings and anomalies" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary
`
}
func (*summaryCmd) SetFlags(f *flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		sum, err := c.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Rows: %d  Credit: %s  Debit: %s  Balance: %s\n\n",
			sum.Totals.Count, sum.Totals.Credit, sum.Totals.Debit, sum.Balance)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, a := range sum.Accounts {
			mark := ""
			if a.Low {
				mark = "LOW"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", a.Account, a.Formatted, mark)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(sum.Anomalies) > 0 {
			fmt.Println("\nUnusual transactions:")
			for _, rec := range sum.Anomalies {
				fmt.Printf("  #%d %s %s %s credit=%s debit=%s\n", rec.Seq, rec.Timestamp, rec.ActorID, rec.AccountID, rec.Credit, rec.Debit)
			}
		}

		if len(sum.Actors) > 0 {
			fmt.Println("\nBy user:")
			w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, a := range sum.Actors {
				fmt.Fprintf(w, "  %s\t%d\tin %s\tout %s\tnet %s\n", a.ActorID, a.Count, a.Income, a.Expense, a.Net)
			}
			return w.Flush()
		}
		return nil
	})
}

type runsCmd struct {
	typ    string
	status string
	limit  int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list recent refresh, parity and append runs" }
func (*runsCmd) Usage() string {
	return `ledgerctl runs [-type refresh|parity|append] [-status running|completed|failed] [-n <count>]
`
}
func (p *runsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.typ, "type", "", "Only runs of this type.")
	f.StringVar(&p.status, "status", "", "Only runs with this status.")
	f.IntVar(&p.limit, "n", 20, "Maximum number of runs.")
}

func (p *runsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withClient(ctx, func(ctx context.Context, c *client.Client) error {
		runs, err := c.Runs(ctx, jobs.RunFilter{
			Type:   jobs.RunType(p.typ),
			Status: jobs.RunStatus(p.status),
			Limit:  p.limit,
		})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tTYPE\tREASON\tSTATUS\tROWS\tDURATION\tDETAIL")
		for _, r := range runs {
			detail := r.Verdict
			if r.Error != "" {
				detail = r.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				formatTime(r.StartedAt), r.Type, r.Reason, r.Status, r.Rows, r.Duration().Round(time.Millisecond), detail)
		}
		return w.Flush()
	})
}

func printAppended(res *client.AppendResult) {
	fmt.Printf("Appended, ledger now has %d rows\n", res.Rows)
	names := make([]string, 0, len(res.Balances))
	for name := range res.Balances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %s\n", name, res.Balances[name])
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(ledger.DateFormat)
}
