package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"

	"github.com/dvloznov/saldo/internal/config"
	"github.com/dvloznov/saldo/internal/infra"
	"github.com/dvloznov/saldo/internal/logger"
)

var (
	fromEnv   = flag.String("from", "", "Env file describing the source store (required)")
	toEnv     = flag.String("to", "", "Env file describing the destination store (required)")
	recompute = flag.Bool("recompute", false, "Write recomputed running balances instead of copying balance cells")
	dryRun    = flag.Bool("dry-run", false, "Read both stores without writing")
)

// migrate copies a ledger from one backend to another, e.g. from the Google
// Sheet into SQLite, and verifies that both recompute to the same balances.
func main() {
	flag.Parse()
	log := logger.New("migrate")

	if *fromEnv == "" || *toEnv == "" {
		log.Fatal().Msg("Both -from and -to env files are required")
	}

	src, err := config.LoadFile(*fromEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load source configuration")
	}
	dst, err := config.LoadFile(*toEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load destination configuration")
	}
	for _, cfg := range []*config.Config{src, dst} {
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Invalid configuration")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	srcStore, closeSrc, err := infra.OpenStore(ctx, src)
	if err != nil {
		log.Fatal().Err(err).Str("backend", src.Backend).Msg("Failed to open source store")
	}
	defer closeSrc()

	dstStore, closeDst, err := infra.OpenStore(ctx, dst)
	if err != nil {
		log.Fatal().Err(err).Str("backend", dst.Backend).Msg("Failed to open destination store")
	}
	defer closeDst()

	log.Info().
		Str("from", src.Backend).
		Str("to", dst.Backend).
		Msg("Copying ledger")

	res, err := copyLedger(ctx, srcStore, dstStore, src.Schema(), src.Normalizer(), Options{
		Recompute: *recompute,
		DryRun:    *dryRun,
		Currency:  src.Currency,
	})
	if errors.Is(err, ErrDriftAfterCopy) {
		for _, d := range res.Details {
			log.Error().Msg(d)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if *dryRun {
		log.Info().Int("rows", res.Rows).Msg("Dry run, nothing written")
		return
	}
	log.Info().Int("rows", res.Rows).Msg("Migration complete")
}
