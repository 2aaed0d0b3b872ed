package syncer

import (
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/shopspring/decimal"
)

// AccountBalance is a final balance with its display form.
type AccountBalance struct {
	Account   string          `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	Formatted string          `json:"formatted"`
	Low       bool            `json:"low"`
}

// Summary is the dashboard view of the cached snapshot.
type Summary struct {
	Currency    string                `json:"currency"`
	Totals      ledger.Totals         `json:"totals"`
	Balance     string                `json:"balance"`
	Accounts    []AccountBalance      `json:"accounts"`
	LowBalances []ledger.LowBalance   `json:"low_balances"`
	Anomalies   []ledger.Record       `json:"anomalies"`
	Actors      []ledger.ActorSummary `json:"actors"`
}

// Summary computes totals, balances, warnings and per-actor flows from the
// cached snapshot.
func (s *Service) Summary() Summary {
	snap := s.cache.Current()

	out := Summary{
		Currency:    s.formatter.Currency(),
		Totals:      ledger.ComputeTotals(snap),
		LowBalances: ledger.LowBalances(snap, s.opts.Thresholds),
		Actors:      ledger.ActorSummaries(snap),
	}
	out.Balance = s.formatter.Format(out.Totals.Balance)

	low := make(map[string]bool, len(out.LowBalances))
	for _, lb := range out.LowBalances {
		low[lb.Account] = true
	}
	balances := snap.LatestBalances(s.schema.Accounts)
	for i, acct := range s.schema.Accounts {
		out.Accounts = append(out.Accounts, AccountBalance{
			Account:   acct,
			Balance:   balances[i],
			Formatted: s.formatter.Format(balances[i]),
			Low:       low[acct],
		})
	}

	seqs := ledger.Anomalies(snap, s.opts.AnomalyK)
	for _, seq := range seqs {
		out.Anomalies = append(out.Anomalies, snap.Records[seq-1])
	}
	return out
}
