package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/saldo/internal/api"
	"github.com/dvloznov/saldo/internal/config"
	"github.com/dvloznov/saldo/internal/infra"
	"github.com/dvloznov/saldo/internal/logger"
	"github.com/dvloznov/saldo/internal/syncer"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command-line flags
	var (
		envFile = flag.String("env", "", "Env file to load instead of ./.env and the environment")
		port    = flag.String("port", "", "HTTP server port (overrides HTTP_PORT)")
	)
	flag.Parse()

	cfg, err := loadConfig(*envFile)
	log := logger.New("api")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewFromConfig("api", cfg.LogLevel, cfg.LogFormat)
	if *port != "" {
		cfg.HTTPPort = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// Initialize the ledger store and run history
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

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(svc, cfg.APIToken, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		log.Info().
			Str("port", cfg.HTTPPort).
			Str("backend", cfg.Backend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server exited")
}

func loadConfig(envFile string) (*config.Config, error) {
	if envFile != "" {
		return config.LoadFile(envFile)
	}
	return config.Load()
}
