package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockRunStore is a mock implementation of RunStore for testing.
type mockRunStore struct {
	saved   []Run
	saveErr error
}

func (m *mockRunStore) SaveRun(ctx context.Context, run *Run) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *run)
	return nil
}

func (m *mockRunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	return nil, ErrRunNotFound
}

func (m *mockRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	return nil, nil
}

// mockArchiver is a mock implementation of Archiver for testing.
type mockArchiver struct {
	archived []string
	err      error
}

func (m *mockArchiver) ArchiveRun(ctx context.Context, run *Run) error {
	m.archived = append(m.archived, run.RunID)
	return m.err
}

func TestRecorder_StartFinish(t *testing.T) {
	store := &mockRunStore{}
	rec := NewRecorder(store, zerolog.Nop())
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return start }

	ctx := context.Background()
	run := rec.Start(ctx, RunTypeRefresh, "watcher")
	if run.RunID == "" || run.Status != RunStatusRunning {
		t.Fatalf("unexpected started run %+v", run)
	}

	rec.now = func() time.Time { return start.Add(2 * time.Second) }
	rec.Finish(ctx, run, errors.New("timeout"))

	if len(store.saved) != 2 {
		t.Fatalf("saved %d times, want 2", len(store.saved))
	}
	last := store.saved[1]
	if last.Status != RunStatusFailed || last.Error != "timeout" {
		t.Errorf("unexpected finished run %+v", last)
	}
	if run.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v", run.Duration())
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	run := rec.Start(context.Background(), RunTypeParity, "manual")
	rec.Finish(context.Background(), run, nil)
	if run.Status != RunStatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
}

func TestRecorder_SaveErrorIsLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	rec := NewRecorder(&mockRunStore{saveErr: errors.New("full")}, zerolog.New(buf))

	rec.Start(context.Background(), RunTypeAppend, "api")
	if !bytes.Contains(buf.Bytes(), []byte("Failed to save run")) {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestArchivingStore(t *testing.T) {
	primary := &mockRunStore{}
	archiver := &mockArchiver{err: errors.New("bq unavailable")}
	s := NewArchivingStore(primary, archiver, zerolog.Nop())
	ctx := context.Background()

	if err := s.SaveRun(ctx, &Run{RunID: "a", Status: RunStatusRunning}); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	if err := s.SaveRun(ctx, &Run{RunID: "a", Status: RunStatusCompleted}); err != nil {
		t.Fatalf("archive failure must not fail SaveRun: %v", err)
	}

	if len(primary.saved) != 2 {
		t.Errorf("primary saved %d, want 2", len(primary.saved))
	}
	if len(archiver.archived) != 1 || archiver.archived[0] != "a" {
		t.Errorf("archived = %v, want only the finished run", archiver.archived)
	}
}
