package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder starts and finishes runs against a store. A nil store turns it
// into a no-op so callers never need to check.
type Recorder struct {
	store RunStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store RunStore, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log, now: time.Now}
}

// Start records a running run and returns it.
func (r *Recorder) Start(ctx context.Context, typ RunType, reason string) *Run {
	run := &Run{
		RunID:     uuid.New().String(),
		Type:      typ,
		Reason:    reason,
		Status:    RunStatusRunning,
		StartedAt: r.clock(),
	}
	r.save(ctx, run)
	return run
}

// Finish marks run completed, or failed when err is not nil, and saves it.
func (r *Recorder) Finish(ctx context.Context, run *Run, err error) {
	if run == nil {
		return
	}
	done := r.clock()
	run.CompletedAt = &done
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = RunStatusCompleted
		run.Error = ""
	}
	r.save(ctx, run)
}

func (r *Recorder) clock() time.Time {
	if r == nil || r.now == nil {
		return time.Now()
	}
	return r.now()
}

func (r *Recorder) save(ctx context.Context, run *Run) {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.log.Warn().
			Err(err).
			Str("run_id", run.RunID).
			Str("type", string(run.Type)).
			Msg("Failed to save run")
	}
}
