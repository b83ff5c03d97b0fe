// Package app wires configuration into stores, engines and services shared
// by the ledger binaries.
package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"solana-wallet-ledger/internal/config"
	"solana-wallet-ledger/internal/correction"
	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/ledger"
	"solana-wallet-ledger/internal/metrics"
	"solana-wallet-ledger/internal/oracle"
	"solana-wallet-ledger/internal/orchestrator"
	"solana-wallet-ledger/internal/query"
	"solana-wallet-ledger/internal/verification"
)

// Services are the engines and coordinators built on top of Dependencies.
type Services struct {
	Oracle     domain.PriceOracle // nil without a price source
	Ledger     *ledger.Engine
	Metrics    *metrics.Engine
	Pass       *orchestrator.Pass
	Sweep      *orchestrator.Sweep
	Query      *query.Service
	Verifier   *verification.LedgerVerifier
	Correction *correction.Service
}

// LoadConfig loads and validates the configuration. forceMemory overrides
// the storage backend, mirroring the --use-memory flag.
func LoadConfig(path string, forceMemory bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if forceMemory {
		cfg.Storage.UseMemory = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger returns the component logger used across binaries.
func NewLogger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lshortfile)
}

// Build constructs Services. publisher may be nil.
func Build(cfg *config.Config, deps *Dependencies, publisher orchestrator.Publisher) (*Services, error) {
	metricsCfg, err := cfg.MetricsEngineConfig()
	if err != nil {
		return nil, err
	}
	ledgerOpts := ledger.Options{TrackingStart: cfg.TrackingStart()}

	s := &Services{}

	if deps.Prices != nil {
		s.Oracle = oracle.NewCached(
			oracle.NewTimeseriesOracle(deps.Prices, cfg.Oracle.Lookback.Duration),
			deps.PriceCache,
			oracle.CachedOptions{TTL: cfg.Oracle.CacheTTL.Duration},
		)
	}

	s.Ledger = ledger.NewEngine(ledger.EngineOptions{
		TradeStore: deps.Trades,
		Oracle:     s.Oracle,
		Logger:     NewLogger("ledger"),
	})
	s.Metrics = metrics.NewEngine(metrics.EngineOptions{
		TradeStore:    deps.Trades,
		LedgerStore:   deps.Ledger,
		Oracle:        s.Oracle,
		TrackingStart: ledgerOpts.TrackingStart,
		Config:        metricsCfg,
		Now:           newMonotonicClock(nil).Now,
		Logger:        NewLogger("metrics"),
	})

	passOpts := orchestrator.PassOptions{
		Ledger:        s.Ledger,
		Metrics:       s.Metrics,
		Committer:     deps.Committer,
		Locks:         deps.Locks,
		LockTTL:       cfg.Ledger.LockTTL.Duration,
		LedgerOptions: ledgerOpts,
		History:       deps.History,
		Publisher:     publisher,
		Logger:        NewLogger("pass"),
	}
	if deps.Archiver != nil {
		passOpts.Archiver = deps.Archiver
	}
	s.Pass = orchestrator.NewPass(passOpts)

	s.Sweep = orchestrator.NewSweep(orchestrator.SweepOptions{
		Runner:              s.Pass,
		Wallets:             deps.Trades,
		Checkpoint:          deps.Checkpoint,
		Limiter:             deps.Limiter,
		Concurrency:         cfg.Sweep.Concurrency,
		SkipProgramAccounts: cfg.Sweep.SkipProgramAccounts,
		Logger:              NewLogger("sweep"),
	})

	s.Query = query.NewService(query.Options{
		Scores:  deps.Scores,
		Ledger:  deps.Ledger,
		History: deps.History,
	})

	s.Verifier = verification.NewLedgerVerifier(verification.LedgerVerifierOptions{
		Engine:        s.Ledger,
		TradeStore:    deps.Trades,
		LedgerStore:   deps.Ledger,
		LedgerOptions: ledgerOpts,
	})

	s.Correction = correction.NewService(correction.Options{
		Trades:      deps.Trades,
		Corrections: deps.Corrections,
		Rebuild: func(ctx context.Context, walletID string) error {
			_, err := s.Pass.Run(ctx, walletID)
			return err
		},
		Logger: NewLogger("correction"),
	})

	return s, nil
}
