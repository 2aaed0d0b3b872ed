// Package infra opens the concrete ledger store and run history selected by
// configuration.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/saldo/internal/config"
	infraBQ "github.com/dvloznov/saldo/internal/infra/bigquery"
	"github.com/dvloznov/saldo/internal/infra/gcs"
	"github.com/dvloznov/saldo/internal/infra/memory"
	"github.com/dvloznov/saldo/internal/infra/notion"
	"github.com/dvloznov/saldo/internal/infra/sheets"
	"github.com/dvloznov/saldo/internal/infra/sqlite"
	"github.com/dvloznov/saldo/internal/jobs"
	"github.com/dvloznov/saldo/internal/jobs/inmemory"
	"github.com/dvloznov/saldo/internal/store"
	"github.com/rs/zerolog"
)

// CloseFunc releases whatever an Open call acquired.
type CloseFunc func() error

func noopClose() error { return nil }

// OpenBackend connects to the backend named by cfg.Backend.
func OpenBackend(ctx context.Context, cfg *config.Config) (store.Backend, CloseFunc, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		client, err := sheets.NewClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return sheets.NewBackend(client, cfg.SheetID, cfg.SheetRange), noopClose, nil

	case config.BackendBigQuery:
		repo, err := infraBQ.NewBigQueryLedgerRepository(ctx, infraBQ.TableRef{
			ProjectID: cfg.BQProject,
			DatasetID: cfg.BQDataset,
			TableID:   cfg.BQTable,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return infraBQ.NewBackend(repo, cfg.Schema(), cfg.Normalizer()), repo.Close, nil

	case config.BackendGCS:
		obj, err := gcs.NewStorageObject(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return gcs.NewBackend(obj), obj.Close, nil

	case config.BackendSQLite:
		b, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return b, b.Close, nil

	case config.BackendNotion:
		client := notion.NewNotionClient(cfg.NotionToken)
		return notion.NewBackend(client, cfg.NotionDBID, cfg.Schema(), cfg.Normalizer()), noopClose, nil

	case config.BackendMemory:
		return memory.New(nil), noopClose, nil
	}
	return nil, nil, fmt.Errorf("OpenBackend: unknown backend %q", cfg.Backend)
}

// OpenStore opens the configured backend behind a store.Adapter.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.Adapter, CloseFunc, error) {
	backend, closeFn, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewAdapter(cfg.Backend, backend, cfg.Schema(), cfg.FetchTimeout), closeFn, nil
}

// OpenRunStore returns the run history: an in-memory store, archiving
// finished runs to BigQuery when BQ_RUNS_TABLE is set.
func OpenRunStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (jobs.RunStore, CloseFunc, error) {
	mem := inmemory.NewStore(cfg.RunHistoryLimit)
	if cfg.BQRunsTable == "" {
		return mem, noopClose, nil
	}

	archive, err := infraBQ.NewRunArchive(ctx, infraBQ.TableRef{
		ProjectID: cfg.BQProject,
		DatasetID: cfg.BQDataset,
		TableID:   cfg.BQRunsTable,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("OpenRunStore: %w", err)
	}
	return jobs.NewArchivingStore(mem, archive, log), archive.Close, nil
}
