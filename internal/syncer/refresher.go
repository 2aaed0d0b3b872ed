package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/ledger"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/rs/zerolog"
)

// Refresher is the only path that replaces the cached snapshot. Refreshes
// never overlap. Requests that arrive while one is running collapse into a
// single recheck once the running ones are done.
type Refresher struct {
	source   store.Source
	engine   ledger.Engine
	cache    *Cache
	state    *State
	recorder *jobs.Recorder
	log      zerolog.Logger
	now      func() time.Time

	// afterLoad runs after every successful refresh, outside the run lock.
	afterLoad func(ctx context.Context, snap *ledger.Snapshot)

	runMu sync.Mutex

	mu      sync.Mutex
	active  int
	pending bool

	wg sync.WaitGroup
}

// NewRefresher creates a Refresher writing to cache and state.
func NewRefresher(source store.Source, engine ledger.Engine, cache *Cache, state *State, recorder *jobs.Recorder, log zerolog.Logger) *Refresher {
	return &Refresher{
		source:   source,
		engine:   engine,
		cache:    cache,
		state:    state,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Refresh fetches the store, recomputes and swaps the cache, waiting for
// any refresh already running.
func (r *Refresher) Refresh(ctx context.Context, reason string) (*ledger.Snapshot, error) {
	r.begin()
	defer r.end(ctx)
	return r.refresh(ctx, reason)
}

// Schedule starts a refresh in the background. When a refresh is already
// running or waiting it only marks a recheck as pending and returns false.
func (r *Refresher) Schedule(ctx context.Context, reason string) bool {
	r.mu.Lock()
	if r.active > 0 {
		r.pending = true
		r.mu.Unlock()
		r.state.update(func(s *SyncState) { s.PendingRecheck = true })
		r.log.Debug().Str("reason", reason).Msg("Refresh in flight, coalescing request")
		return false
	}
	r.active++
	r.mu.Unlock()
	r.state.update(func(s *SyncState) { s.RefreshInFlight = true })

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.end(ctx)
		if _, err := r.refresh(ctx, reason); err != nil {
			r.log.Warn().Err(err).Str("reason", reason).Msg("Background refresh failed")
		}
	}()
	return true
}

// Wait blocks until background refreshes, including rechecks they
// trigger, have finished.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

func (r *Refresher) begin() {
	r.mu.Lock()
	r.active++
	r.mu.Unlock()
	r.state.update(func(s *SyncState) { s.RefreshInFlight = true })
}

// end releases one refresh. The last one out performs the pending recheck:
// if the store moved past what was just loaded, exactly one more refresh
// is scheduled.
func (r *Refresher) end(ctx context.Context) {
	r.mu.Lock()
	r.active--
	idle := r.active == 0
	recheck := idle && r.pending
	if recheck {
		r.pending = false
	}
	r.mu.Unlock()

	if idle {
		r.state.update(func(s *SyncState) {
			s.RefreshInFlight = false
			s.PendingRecheck = false
		})
	}
	if !recheck {
		return
	}

	sum, err := r.source.FetchChecksum(ctx)
	if err != nil {
		r.state.markDisconnected(err)
		r.log.Warn().Err(err).Msg("Recheck after refresh failed")
		return
	}
	if string(sum) == r.cache.Checksum() {
		return
	}
	r.log.Info().
		Str("checksum", string(sum)).
		Msg("Store changed during refresh, scheduling recheck")
	// The caller may be an HTTP request whose context ends on return.
	r.Schedule(context.WithoutCancel(ctx), "recheck")
}

func (r *Refresher) refresh(ctx context.Context, reason string) (*ledger.Snapshot, error) {
	snap, err := r.load(ctx, reason)
	if err != nil {
		return nil, err
	}
	if r.afterLoad != nil {
		r.afterLoad(ctx, snap)
	}
	return snap, nil
}

func (r *Refresher) load(ctx context.Context, reason string) (*ledger.Snapshot, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := r.now()
	run := r.recorder.Start(ctx, jobs.RunTypeRefresh, reason)

	fetched, err := r.source.FetchRows(ctx)
	if err != nil {
		// Point the watcher back at the loaded content so the next tick
		// sees a difference and tries again.
		loaded := store.Checksum(r.cache.Checksum())
		r.state.update(func(s *SyncState) {
			s.Connected = false
			s.LastError = err.Error()
			s.LastChecksum = loaded
		})
		r.recorder.Finish(ctx, run, err)
		return nil, fmt.Errorf("Refresh: %w", err)
	}

	snap := r.engine.Recompute(fetched.Rows)
	snap.Checksum = string(fetched.Checksum)
	snap.BuiltAt = r.now()
	r.cache.store(snap)

	r.state.update(func(s *SyncState) {
		s.Connected = true
		s.LastFetch = snap.BuiltAt
		s.LastChecksum = fetched.Checksum
		s.LastError = ""
		s.Rows = snap.Len()
	})

	if run != nil {
		run.Checksum = snap.Checksum
		run.Rows = snap.Len()
	}
	r.recorder.Finish(ctx, run, nil)

	r.log.Info().
		Str("reason", reason).
		Int("rows", snap.Len()).
		Str("checksum", snap.Checksum).
		Dur("duration", r.now().Sub(start)).
		Msg("Ledger refreshed")

	return snap, nil
}
