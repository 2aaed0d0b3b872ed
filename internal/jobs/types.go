package jobs

import (
	"context"
	"errors"
	"time"
)

// RunType represents the kind of work a run performed.
type RunType string

const (
	// RunTypeRefresh is a fetch, recompute, and cache swap.
	RunTypeRefresh RunType = "refresh"
	// RunTypeParity is an independent parity check.
	RunTypeParity RunType = "parity"
	// RunTypeAppend is a write to the authoritative store.
	RunTypeAppend RunType = "append"
)

// RunStatus represents the current status of a run.
type RunStatus string

const (
	// RunStatusRunning indicates the run is in progress.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the run finished successfully.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the run failed.
	RunStatusFailed RunStatus = "failed"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded refresh, parity check, or append.
type Run struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	// Type is the kind of run.
	Type RunType `json:"type"`

	// Reason says what triggered the run (watcher, manual, append, startup, interval).
	Reason string `json:"reason,omitempty"`

	// Status is the current status of the run.
	Status RunStatus `json:"status"`

	// Checksum is the store checksum the run observed.
	Checksum string `json:"checksum,omitempty"`

	// Rows is the number of ledger rows loaded or written.
	Rows int `json:"rows"`

	// Verdict is the parity verdict, for parity runs.
	Verdict string `json:"verdict,omitempty"`

	// Details are the parity findings.
	Details []string `json:"details,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the run failed.
	Error string `json:"error,omitempty"`
}

// Finished reports whether the run has completed or failed.
func (r *Run) Finished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// Duration is the wall time of a finished run, zero otherwise.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunStore defines the interface for storing and retrieving runs.
type RunStore interface {
	// SaveRun saves or updates a run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns retrieves runs, newest first, with optional filtering.
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// Archiver receives finished runs for long-term storage.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *Run) error
}

// RunFilter defines filtering criteria for listing runs.
type RunFilter struct {
	// Type filters runs by type.
	Type RunType

	// Status filters runs by status.
	Status RunStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
