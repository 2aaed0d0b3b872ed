package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/saldo/internal/jobs"
)

// DefaultLimit is the number of runs kept when no limit is given.
const DefaultLimit = 200

// Store is an in-memory implementation of RunStore.
// It keeps the most recent runs and is safe for concurrent use.
// Data is lost on service restart; pair it with an archiver for history.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*jobs.Run
	order []string
	limit int
}

// NewStore creates a new in-memory run store holding at most limit runs.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		runs:  make(map[string]*jobs.Run),
		limit: limit,
	}
}

// SaveRun implements the RunStore interface.
// It saves or updates a run, evicting the oldest run when full.
func (s *Store) SaveRun(ctx context.Context, run *jobs.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; !exists {
		s.order = append(s.order, run.RunID)
		for len(s.order) > s.limit {
			delete(s.runs, s.order[0])
			s.order = s.order[1:]
		}
	}

	s.runs[run.RunID] = copyRun(run)
	return nil
}

// GetRun implements the RunStore interface.
func (s *Store) GetRun(ctx context.Context, runID string) (*jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrRunNotFound, runID)
	}
	return copyRun(run), nil
}

// ListRuns implements the RunStore interface.
// Runs are returned newest first.
func (s *Store) ListRuns(ctx context.Context, filter jobs.RunFilter) ([]*jobs.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.Run
	for _, run := range s.runs {
		if filter.Type != "" && run.Type != filter.Type {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, copyRun(run))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.Run{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// copyRun returns a copy so callers cannot modify stored runs.
func copyRun(run *jobs.Run) *jobs.Run {
	c := *run
	c.Details = append([]string(nil), run.Details...)
	if run.CompletedAt != nil {
		t := *run.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Ensure Store implements RunStore interface.
var _ jobs.RunStore = (*Store)(nil)
