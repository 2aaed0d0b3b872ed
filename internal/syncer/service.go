package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/saldo/internal/amount"
	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/parity"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultParityInterval is how often the periodic parity check runs.
const DefaultParityInterval = 5 * time.Minute

// Store is what the service needs from the authoritative store.
type Store interface {
	store.Source
	AppendRows(ctx context.Context, rows [][]any) error
	EnsureSchema(ctx context.Context, initial []any) (bool, error)
}

// Options tune the service.
type Options struct {
	PollInterval       time.Duration
	ParityInterval     time.Duration
	ParityAfterRefresh bool
	Thresholds         map[string]decimal.Decimal
	AnomalyK           float64
	Currency           string
}

// Service wires the cache, the refresher, the watcher and the parity
// verifier together and exposes them to the HTTP layer.
type Service struct {
	store      Store
	schema     ledger.Schema
	normalizer amount.Normalizer
	formatter  amount.Formatter
	builder    ledger.RowBuilder
	opts       Options
	log        zerolog.Logger

	cache     *Cache
	state     *State
	runs      jobs.RunStore
	recorder  *jobs.Recorder
	refresher *Refresher
	watcher   *Watcher
	verifier  *parity.Verifier

	appendMu sync.Mutex
}

// NewService builds a service over st. runs may be nil to disable run
// history.
func NewService(st Store, schema ledger.Schema, norm amount.Normalizer, runs jobs.RunStore, opts Options, log zerolog.Logger) *Service {
	if opts.ParityInterval <= 0 {
		opts.ParityInterval = DefaultParityInterval
	}
	if opts.AnomalyK <= 0 {
		opts.AnomalyK = 3
	}
	if opts.Currency == "" {
		opts.Currency = "IDR"
	}

	engine := ledger.NewEngine(schema, norm)
	formatter := amount.NewFormatter(opts.Currency, norm.Precision)
	cache := NewCache()
	state := NewState()
	recorder := jobs.NewRecorder(runs, log)

	s := &Service{
		store:      st,
		schema:     schema,
		normalizer: norm,
		formatter:  formatter,
		builder:    ledger.NewRowBuilder(schema),
		opts:       opts,
		log:        log,
		cache:      cache,
		state:      state,
		runs:       runs,
		recorder:   recorder,
	}
	s.refresher = NewRefresher(st, engine, cache, state, recorder, log)
	s.watcher = NewWatcher(st, s.refresher, state, opts.PollInterval, log)
	s.verifier = parity.NewVerifier(st, engine, cache, state, formatter, recorder, log)
	if opts.ParityAfterRefresh {
		s.refresher.afterLoad = func(ctx context.Context, _ *ledger.Snapshot) {
			s.verifier.Check(ctx, "refresh")
		}
	}
	return s
}

// Run bootstraps the store, loads the first snapshot and then keeps the
// cache in sync until ctx is cancelled. Store failures during startup are
// logged and left to the watcher.
func (s *Service) Run(ctx context.Context) error {
	if wrote, err := s.store.EnsureSchema(ctx, s.builder.InitialRow()); err != nil {
		s.log.Warn().Err(err).Msg("Could not prepare the ledger store")
	} else if wrote {
		s.log.Info().Msg("Ledger store initialized")
	}

	if _, err := s.refresher.Refresh(ctx, "startup"); err != nil {
		s.log.Warn().Err(err).Msg("Initial refresh failed")
	} else if !s.opts.ParityAfterRefresh {
		s.verifier.Check(ctx, "startup")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.watcher.Run(gctx)
	})
	g.Go(func() error {
		return s.parityLoop(gctx)
	})
	err := g.Wait()
	s.refresher.Wait()
	return err
}

func (s *Service) parityLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.ParityInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.verifier.Check(ctx, "interval")
		}
	}
}

// CurrentSnapshot returns the cached snapshot, nil before the first load.
func (s *Service) CurrentSnapshot() *ledger.Snapshot {
	return s.cache.Current()
}

// CurrentSyncState returns a copy of the sync state.
func (s *Service) CurrentSyncState() SyncState {
	return s.state.Get()
}

// ForceRefresh reloads the store now.
func (s *Service) ForceRefresh(ctx context.Context) (*ledger.Snapshot, error) {
	return s.refresher.Refresh(ctx, "manual")
}

// ForceParityCheck runs a parity check now.
func (s *Service) ForceParityCheck(ctx context.Context) (parity.Verdict, []string) {
	return s.verifier.Verify(ctx)
}

// Check polls the store once, as a watcher tick would.
func (s *Service) Check(ctx context.Context) bool {
	return s.watcher.Check(ctx)
}

// WaitIdle waits for background refreshes to finish.
func (s *Service) WaitIdle() {
	s.refresher.Wait()
}

// Schema returns the ledger schema.
func (s *Service) Schema() ledger.Schema {
	return s.schema
}

// Normalizer returns the amount normalizer used for writes.
func (s *Service) Normalizer() amount.Normalizer {
	return s.normalizer
}

// Formatter returns the currency formatter.
func (s *Service) Formatter() amount.Formatter {
	return s.formatter
}

// ParseAmount parses a user-entered amount strictly. Empty input is zero.
func (s *Service) ParseAmount(field string, raw any) (decimal.Decimal, error) {
	d, err := s.normalizer.NormalizeStrict(raw)
	if err != nil {
		return decimal.Zero, &ledger.ValidationError{Field: field, Reason: err.Error()}
	}
	return d, nil
}

// AppendTransaction writes e to the store and refreshes the cache.
func (s *Service) AppendTransaction(ctx context.Context, e ledger.Entry) error {
	return s.write(ctx, "transaction", func(prev *ledger.Snapshot) ([][]any, error) {
		e.Credit = s.normalizer.Round(e.Credit)
		e.Debit = s.normalizer.Round(e.Debit)
		row, err := s.builder.MutationRow(prev, e)
		if err != nil {
			return nil, err
		}
		return [][]any{row}, nil
	})
}

// Transfer moves amt from one tracked account to another as a debit row
// followed by a credit row.
func (s *Service) Transfer(ctx context.Context, from, to string, amt decimal.Decimal, note string) error {
	return s.write(ctx, "transfer", func(prev *ledger.Snapshot) ([][]any, error) {
		return s.builder.TransferRows(prev, from, to, s.normalizer.Round(amt), note)
	})
}

// SetBalances writes a reset record setting every tracked balance.
// Accounts missing from balances are set to zero.
func (s *Service) SetBalances(ctx context.Context, balances map[string]decimal.Decimal, note string) error {
	return s.write(ctx, "balances", func(prev *ledger.Snapshot) ([][]any, error) {
		rounded := make(map[string]decimal.Decimal, len(balances))
		for k, v := range balances {
			rounded[k] = s.normalizer.Round(v)
		}
		row, err := s.builder.ResetRow(prev, rounded, note)
		if err != nil {
			return nil, err
		}
		return [][]any{row}, nil
	})
}

// write builds rows on top of the cached snapshot, appends them and
// refreshes. Writes are serialized so sequence numbers stay monotonic. A
// refresh failure after a successful write is logged, not returned; the
// watcher picks the change up.
func (s *Service) write(ctx context.Context, reason string, build func(prev *ledger.Snapshot) ([][]any, error)) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	rows, err := build(s.cache.Current())
	if err != nil {
		return err
	}

	run := s.recorder.Start(ctx, jobs.RunTypeAppend, reason)
	if err := s.store.AppendRows(ctx, rows); err != nil {
		s.recorder.Finish(ctx, run, err)
		return fmt.Errorf("AppendTransaction: %w", err)
	}
	if run != nil {
		run.Rows = len(rows)
	}
	s.recorder.Finish(ctx, run, nil)

	s.log.Info().
		Str("reason", reason).
		Int("rows", len(rows)).
		Msg("Appended ledger rows")

	if _, err := s.refresher.Refresh(ctx, "append"); err != nil {
		s.log.Warn().Err(err).Msg("Refresh after append failed")
	}
	return nil
}

// ListRuns returns recorded runs, newest first.
func (s *Service) ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.Run, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(ctx, filter)
}

// GetRun returns a recorded run by id.
func (s *Service) GetRun(ctx context.Context, id string) (*jobs.Run, error) {
	if s.runs == nil {
		return nil, jobs.ErrRunNotFound
	}
	return s.runs.GetRun(ctx, id)
}
