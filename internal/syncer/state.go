package syncer

import (
	"sync"
	"time"

	"github.com/dvloznov/saldo/internal/parity"
	"github.com/dvloznov/saldo/internal/store"
)

// SyncState describes how the mirror relates to the store.
type SyncState struct {
	Connected       bool           `json:"connected"`
	LastFetch       time.Time      `json:"last_fetch"`
	LastChecksum    store.Checksum `json:"last_checksum"`
	LastError       string         `json:"last_error,omitempty"`
	Rows            int            `json:"rows"`
	Parity          parity.Verdict `json:"parity"`
	ParityDetails   []string       `json:"parity_details,omitempty"`
	ParityCheckedAt time.Time      `json:"parity_checked_at"`
	RefreshInFlight bool           `json:"refresh_in_flight"`
	PendingRecheck  bool           `json:"pending_recheck"`
}

// State guards a SyncState. Get returns a copy.
type State struct {
	mu sync.RWMutex
	s  SyncState
}

// NewState returns a disconnected state with an unknown parity verdict.
func NewState() *State {
	return &State{s: SyncState{Parity: parity.Unknown}}
}

// Get returns a copy of the current state.
func (st *State) Get() SyncState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := st.s
	out.ParityDetails = append([]string(nil), st.s.ParityDetails...)
	return out
}

func (st *State) update(fn func(s *SyncState)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

// SetParity implements parity.Sink.
func (st *State) SetParity(v parity.Verdict, details []string, at time.Time) {
	st.update(func(s *SyncState) {
		s.Parity = v
		s.ParityDetails = append([]string(nil), details...)
		s.ParityCheckedAt = at
	})
}

func (st *State) markDisconnected(err error) {
	st.update(func(s *SyncState) {
		s.Connected = false
		s.LastError = err.Error()
	})
}
