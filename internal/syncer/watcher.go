package syncer

import (
	"context"
	"time"

	"github.com/dvloznov/saldo/internal/store"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the store checksum is polled.
const DefaultPollInterval = 5 * time.Second

// Watcher polls the store checksum and schedules a refresh when it changes.
type Watcher struct {
	source    store.Source
	refresher *Refresher
	state     *State
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewWatcher creates a Watcher polling every interval.
func NewWatcher(source store.Source, refresher *Refresher, state *State, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		source:    source,
		refresher: refresher,
		state:     state,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled. It always returns nil; fetch failures
// are recorded in the state and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Watcher started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Watcher stopped")
			return nil
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check performs one poll. It reports whether a change was detected.
func (w *Watcher) Check(ctx context.Context) bool {
	sum, err := w.source.FetchChecksum(ctx)
	if err != nil {
		w.state.markDisconnected(err)
		w.log.Warn().Err(err).Msg("Checksum poll failed")
		return false
	}

	var changed bool
	w.state.update(func(s *SyncState) {
		s.Connected = true
		s.LastFetch = w.now()
		s.LastError = ""
		if s.LastChecksum != sum {
			s.LastChecksum = sum
			changed = true
		}
	})
	if !changed {
		return false
	}

	w.log.Info().Str("checksum", string(sum)).Msg("Store change detected")
	w.refresher.Schedule(ctx, "watcher")
	return true
}
