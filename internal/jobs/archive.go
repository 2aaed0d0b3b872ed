package jobs

import (
	"context"

	"github.com/rs/zerolog"
)

// ArchivingStore saves runs to a primary store and hands finished runs to
// an Archiver. Archive failures are logged, never returned.
type ArchivingStore struct {
	RunStore
	archiver Archiver
	log      zerolog.Logger
}

// NewArchivingStore wraps primary.
func NewArchivingStore(primary RunStore, archiver Archiver, log zerolog.Logger) *ArchivingStore {
	return &ArchivingStore{RunStore: primary, archiver: archiver, log: log}
}

// SaveRun implements RunStore.
func (s *ArchivingStore) SaveRun(ctx context.Context, run *Run) error {
	if err := s.RunStore.SaveRun(ctx, run); err != nil {
		return err
	}
	if run.Finished() && s.archiver != nil {
		if err := s.archiver.ArchiveRun(ctx, run); err != nil {
			s.log.Warn().
				Err(err).
				Str("run_id", run.RunID).
				Msg("Failed to archive run")
		}
	}
	return nil
}

var _ RunStore = (*ArchivingStore)(nil)
