package ledger

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Totals summarizes a snapshot.
type Totals struct {
	Count   int             `json:"count"`
	Credit  decimal.Decimal `json:"credit"`
	Debit   decimal.Decimal `json:"debit"`
	Balance decimal.Decimal `json:"balance"`
}

// ComputeTotals sums credits and debits and takes the final aggregate.
func ComputeTotals(snap *Snapshot) Totals {
	t := Totals{Credit: decimal.Zero, Debit: decimal.Zero, Balance: decimal.Zero}
	if snap == nil {
		return t
	}
	t.Count = len(snap.Records)
	for _, rec := range snap.Records {
		t.Credit = t.Credit.Add(rec.Credit)
		t.Debit = t.Debit.Add(rec.Debit)
	}
	if last, ok := snap.Last(); ok {
		t.Balance = last.Aggregate
	}
	return t
}

// LowBalance is an account whose final balance is under its threshold.
type LowBalance struct {
	Account   string          `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	Threshold decimal.Decimal `json:"threshold"`
}

// LowBalances lists, in account order, the accounts below their threshold.
// Accounts without a threshold are never reported.
func LowBalances(snap *Snapshot, thresholds map[string]decimal.Decimal) []LowBalance {
	last, ok := snap.Last()
	if !ok {
		return nil
	}
	var out []LowBalance
	for _, acct := range snap.Accounts {
		th, ok := thresholds[acct]
		if !ok {
			continue
		}
		bal := snap.Balance(last, acct)
		if bal.LessThan(th) {
			out = append(out, LowBalance{Account: acct, Balance: bal, Threshold: th})
		}
	}
	return out
}

// Anomalies returns the sequence numbers of records whose larger side
// (credit or debit) exceeds mean + k standard deviations over the snapshot.
func Anomalies(snap *Snapshot, k float64) []int {
	n := snap.Len()
	if n == 0 {
		return nil
	}
	values := make([]float64, n)
	var mean float64
	for i, rec := range snap.Records {
		v := decimal.Max(rec.Credit, rec.Debit).InexactFloat64()
		values[i] = v
		mean += v
	}
	mean /= float64(n)

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(n))
	if std == 0 {
		return nil
	}

	threshold := mean + k*std
	var seqs []int
	for i, v := range values {
		if v > threshold {
			seqs = append(seqs, snap.Records[i].Seq)
		}
	}
	return seqs
}

// ActorSummary aggregates flows per actor.
type ActorSummary struct {
	ActorID string          `json:"actor_id"`
	Count   int             `json:"count"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// ActorSummaries groups records by actor, sorted by actor id.
func ActorSummaries(snap *Snapshot) []ActorSummary {
	if snap.Len() == 0 {
		return nil
	}
	byActor := make(map[string]*ActorSummary)
	for _, rec := range snap.Records {
		s, ok := byActor[rec.ActorID]
		if !ok {
			s = &ActorSummary{ActorID: rec.ActorID, Income: decimal.Zero, Expense: decimal.Zero}
			byActor[rec.ActorID] = s
		}
		s.Count++
		s.Income = s.Income.Add(rec.Credit)
		s.Expense = s.Expense.Add(rec.Debit)
	}

	out := make([]ActorSummary, 0, len(byActor))
	for _, s := range byActor {
		s.Net = s.Income.Sub(s.Expense)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}
