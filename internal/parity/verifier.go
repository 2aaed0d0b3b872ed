package parity

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Verdict is the outcome of a parity check.
type Verdict string

const (
	// Unknown means no check has completed, or the last one could not fetch.
	Unknown Verdict = "unknown"
	// OK means the cache matches an independent recomputation.
	OK Verdict = "ok"
	// Drift means at least one compared value differs.
	Drift Verdict = "drift"
)

// SnapshotReader exposes the cached snapshot.
type SnapshotReader interface {
	Current() *ledger.Snapshot
}

// Sink receives every verdict.
type Sink interface {
	SetParity(v Verdict, details []string, at time.Time)
}

// Verifier compares the cache against a fresh read of the store. It never
// modifies the cache.
type Verifier struct {
	source    store.Source
	engine    ledger.Engine
	cache     SnapshotReader
	sink      Sink
	formatter amount.Formatter
	recorder  *jobs.Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewVerifier creates a Verifier. sink and recorder may be nil.
func NewVerifier(source store.Source, engine ledger.Engine, cache SnapshotReader, sink Sink, formatter amount.Formatter, recorder *jobs.Recorder, log zerolog.Logger) *Verifier {
	return &Verifier{
		source:    source,
		engine:    engine,
		cache:     cache,
		sink:      sink,
		formatter: formatter,
		recorder:  recorder,
		log:       log,
		now:       time.Now,
	}
}

// Verify runs a manual check.
func (v *Verifier) Verify(ctx context.Context) (Verdict, []string) {
	return v.Check(ctx, "manual")
}

// Check fetches the store, recomputes it and compares the result with the
// cached snapshot. reason is recorded with the run.
func (v *Verifier) Check(ctx context.Context, reason string) (Verdict, []string) {
	run := v.recorder.Start(ctx, jobs.RunTypeParity, reason)

	fetched, err := v.source.FetchRows(ctx)
	if err != nil {
		details := []string{fmt.Sprintf("parity check failed: %v", err)}
		v.publish(Unknown, details)
		if run != nil {
			run.Verdict = string(Unknown)
			run.Details = details
		}
		v.recorder.Finish(ctx, run, err)
		v.log.Warn().Err(err).Str("reason", reason).Msg("Parity check could not fetch the store")
		return Unknown, details
	}

	fresh := v.engine.Recompute(fetched.Rows)
	details := Compare(fresh, v.cache.Current(), v.engine.Normalizer.SmallestUnit(), v.formatter.Format)

	verdict := OK
	if len(details) > 0 {
		verdict = Drift
	}
	v.publish(verdict, details)

	if run != nil {
		run.Verdict = string(verdict)
		run.Details = details
		run.Checksum = string(fetched.Checksum)
		run.Rows = fresh.Len()
	}
	v.recorder.Finish(ctx, run, nil)

	ev := v.log.Info()
	if verdict == Drift {
		ev = v.log.Warn().Strs("details", details)
	}
	ev.Str("reason", reason).
		Str("verdict", string(verdict)).
		Int("rows", fresh.Len()).
		Msg("Parity check finished")

	return verdict, details
}

func (v *Verifier) publish(verdict Verdict, details []string) {
	if v.sink == nil {
		return
	}
	v.sink.SetParity(verdict, details, v.now())
}

// Compare lists the differences between a snapshot recomputed from the
// store and the cached one. Amounts closer than tolerance are equal. An
// empty result means parity.
func Compare(source, cache *ledger.Snapshot, tolerance decimal.Decimal, format func(decimal.Decimal) string) []string {
	var details []string

	if source.Len() != cache.Len() {
		details = append(details, fmt.Sprintf("Row count differs: source=%d cache=%d", source.Len(), cache.Len()))
	}

	differs := func(label string, a, b decimal.Decimal) {
		if a.Sub(b).Abs().LessThan(tolerance) {
			return
		}
		details = append(details, fmt.Sprintf("%s differs: source=%s cache=%s", label, format(a), format(b)))
	}

	st := ledger.ComputeTotals(source)
	ct := ledger.ComputeTotals(cache)
	differs("Total Credit", st.Credit, ct.Credit)
	differs("Total Debit", st.Debit, ct.Debit)
	differs("Final Balance", st.Balance, ct.Balance)

	var accounts ledger.Accounts
	switch {
	case source != nil:
		accounts = source.Accounts
	case cache != nil:
		accounts = cache.Accounts
	}
	srcBal := source.LatestBalances(accounts)
	cacheBal := cache.LatestBalances(accounts)
	for i, acct := range accounts {
		differs("Balance "+acct, srcBal[i], cacheBal[i])
	}

	return details
}
