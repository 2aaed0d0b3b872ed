package inmemory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/saldo/internal/jobs"
)

func newRun(id string, typ jobs.RunType, status jobs.RunStatus, started time.Time) *jobs.Run {
	return &jobs.Run{RunID: id, Type: typ, Status: status, StartedAt: started}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore(10)
	ctx := context.Background()
	run := newRun("r1", jobs.RunTypeRefresh, jobs.RunStatusRunning, time.Now())
	run.Details = []string{"a"}

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	run.Details[0] = "changed"

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if got.Details[0] != "a" {
		t.Error("stored run shares memory with the caller")
	}

	if err := s.SaveRun(ctx, &jobs.Run{}); err == nil {
		t.Error("SaveRun() without id should fail")
	}
	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, jobs.ErrRunNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	s := NewStore(3)
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		_ = s.SaveRun(ctx, newRun(fmt.Sprintf("r%d", i), jobs.RunTypeRefresh, jobs.RunStatusCompleted, base.Add(time.Duration(i)*time.Second)))
	}
	// Updating an existing run must not evict anything.
	_ = s.SaveRun(ctx, newRun("r4", jobs.RunTypeRefresh, jobs.RunStatusFailed, base.Add(4*time.Second)))

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if _, err := s.GetRun(ctx, "r1"); err == nil {
		t.Error("r1 should have been evicted")
	}
	if _, err := s.GetRun(ctx, "r2"); err != nil {
		t.Errorf("r2 should be kept: %v", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := NewStore(0)
	ctx := context.Background()
	base := time.Now()
	_ = s.SaveRun(ctx, newRun("a", jobs.RunTypeRefresh, jobs.RunStatusCompleted, base))
	_ = s.SaveRun(ctx, newRun("b", jobs.RunTypeParity, jobs.RunStatusCompleted, base.Add(time.Second)))
	_ = s.SaveRun(ctx, newRun("c", jobs.RunTypeRefresh, jobs.RunStatusFailed, base.Add(2*time.Second)))

	tests := []struct {
		name   string
		filter jobs.RunFilter
		want   []string
	}{
		{"all newest first", jobs.RunFilter{}, []string{"c", "b", "a"}},
		{"by type", jobs.RunFilter{Type: jobs.RunTypeRefresh}, []string{"c", "a"}},
		{"by status", jobs.RunFilter{Status: jobs.RunStatusCompleted}, []string{"b", "a"}},
		{"limit", jobs.RunFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.RunFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.RunFilter{Offset: 5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRuns() error: %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].RunID != id {
					t.Errorf("runs[%d] = %s, want %s", i, runs[i].RunID, id)
				}
			}
		})
	}
}
