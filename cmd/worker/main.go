package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/saldo/internal/config"
	"github.com/dvloznov/saldo/internal/infra"
	"github.com/dvloznov/saldo/internal/logger"
	"github.com/dvloznov/saldo/internal/syncer"
)

// The worker keeps a ledger mirror in sync without serving HTTP. It is
// useful to watch parity and low balances from logs alone.
func main() {
	envFile := flag.String("env", "", "Env file to load instead of ./.env and the environment")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *envFile != "" {
		cfg, err = config.LoadFile(*envFile)
	} else {
		cfg, err = config.Load()
	}
	log := logger.New("worker")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewFromConfig("worker", cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	adapter, closeStore, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to open ledger store")
	}
	defer closeStore()

	runs, closeRuns, err := infra.OpenRunStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open run history")
	}
	defer closeRuns()

	svc := syncer.NewService(adapter, cfg.Schema(), cfg.Normalizer(), runs, syncer.Options{
		PollInterval:       cfg.PollInterval,
		ParityInterval:     cfg.ParityInterval,
		ParityAfterRefresh: cfg.ParityAfterRefresh,
		Thresholds:         cfg.MinBalanceThresholds,
		AnomalyK:           cfg.AnomalyStdMultiplier,
		Currency:           cfg.Currency,
	}, log)

	log.Info().Str("backend", cfg.Backend).Msg("Starting sync worker")

	go func() {
		// Report warnings once the first snapshot is in.
		for ctx.Err() == nil && svc.CurrentSnapshot() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.PollInterval):
			}
		}
		if ctx.Err() != nil {
			return
		}
		sum := svc.Summary()
		for _, lb := range sum.LowBalances {
			log.Warn().
				Str("account", lb.Account).
				Str("balance", svc.Formatter().Format(lb.Balance)).
				Str("threshold", svc.Formatter().Format(lb.Threshold)).
				Msg("Balance below threshold")
		}
		log.Info().
			Int("rows", sum.Totals.Count).
			Str("balance", sum.Balance).
			Msg("Ledger loaded")
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Sync worker stopped with error")
	}
	log.Info().Msg("Worker service stopped")
}
