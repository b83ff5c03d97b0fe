package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/pubkey"
	"solana-wallet-ledger/internal/storage"
)

// WalletRunner runs a single wallet pass. *Pass implements it.
type WalletRunner interface {
	Run(ctx context.Context, walletID string) (*PassResult, error)
}

// sweepLimiterKey is the rate limiter key shared by all sweep workers.
const sweepLimiterKey = "sweep"

// Sweep runs passes over many wallets with bounded concurrency.
type Sweep struct {
	runner      WalletRunner
	wallets     storage.TradeStore
	checkpoint  domain.SweepCheckpoint
	limiter     domain.RateLimiter
	concurrency int
	skipPDAs    bool
	logger      *log.Logger
}

// SweepOptions for creating a Sweep.
type SweepOptions struct {
	Runner     WalletRunner
	Wallets    storage.TradeStore     // wallet discovery when Run gets no list
	Checkpoint domain.SweepCheckpoint // optional; enables resume by run id
	Limiter    domain.RateLimiter     // optional

	Concurrency int // defaults to 4

	// SkipProgramAccounts drops off-curve addresses (pools, vaults) and
	// addresses that do not decode.
	SkipProgramAccounts bool

	Logger *log.Logger
}

// NewSweep creates a new Sweep.
func NewSweep(opts SweepOptions) *Sweep {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Sweep{
		runner:      opts.Runner,
		wallets:     opts.Wallets,
		checkpoint:  opts.Checkpoint,
		limiter:     opts.Limiter,
		concurrency: concurrency,
		skipPDAs:    opts.SkipProgramAccounts,
		logger:      logger,
	}
}

// WalletFailure records a wallet whose pass failed.
type WalletFailure struct {
	WalletID string
	Err      error
}

// SweepResult contains results from a sweep.
type SweepResult struct {
	RunID     string
	Total     int
	Processed int
	Resumed   int // already done under this run id
	Skipped   int // program accounts and invalid addresses
	Conflicts int
	Failures  []WalletFailure
	Duration  time.Duration
}

// Run processes wallets under runID. An empty runID starts a new run; a nil
// wallets slice sweeps every wallet known to the trade source. Per-wallet
// failures are collected, not retried. The returned error is non-nil only
// when the sweep itself could not proceed (discovery failure, cancellation).
func (s *Sweep) Run(ctx context.Context, runID string, wallets []string) (*SweepResult, error) {
	start := time.Now()
	if runID == "" {
		runID = uuid.NewString()
	}

	if wallets == nil {
		if s.wallets == nil {
			return nil, fmt.Errorf("no wallets given and no wallet source configured")
		}
		var err error
		wallets, err = s.wallets.ListWallets(ctx)
		if err != nil {
			return nil, domain.NewDependencyError("trade_source", "list wallets", err)
		}
	}

	result := &SweepResult{RunID: runID, Total: len(wallets)}
	wallets = s.filter(wallets, result)

	s.logger.Printf("[sweep] run %s: %d wallets (%d skipped)", runID, len(wallets), result.Skipped)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, walletID := range wallets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			status, err := s.processWallet(gctx, runID, walletID)
			if status == "" {
				// Sweep-level failure (cancellation, limiter).
				return err
			}
			observability.RecordSweepWallet(status)

			mu.Lock()
			defer mu.Unlock()
			switch status {
			case "ok":
				result.Processed++
			case "resumed":
				result.Resumed++
			case "conflict":
				result.Conflicts++
			case "failed":
				result.Failures = append(result.Failures, WalletFailure{WalletID: walletID, Err: err})
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].WalletID < result.Failures[j].WalletID
	})
	result.Duration = time.Since(start)
	observability.RecordSweep(result.Duration.Seconds(), time.Now().Unix())

	s.logger.Printf("[sweep] run %s: processed=%d resumed=%d conflicts=%d failed=%d in %s",
		runID, result.Processed, result.Resumed, result.Conflicts, len(result.Failures), result.Duration.Round(time.Millisecond))

	if err != nil {
		return result, fmt.Errorf("sweep %s: %w", runID, err)
	}
	return result, nil
}

// processWallet returns the wallet status, or "" with an error when the
// sweep itself must stop.
func (s *Sweep) processWallet(ctx context.Context, runID, walletID string) (string, error) {
	if s.checkpoint != nil {
		done, err := s.checkpoint.IsDone(ctx, runID, walletID)
		if err != nil {
			return "failed", domain.NewDependencyError("sweep_checkpoint", "is done", err)
		}
		if done {
			return "resumed", nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, sweepLimiterKey); err != nil {
			return "", err
		}
	}

	if _, err := s.runner.Run(ctx, walletID); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return "conflict", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Printf("[sweep] %s: %v", walletID, err)
		return "failed", err
	}

	if s.checkpoint != nil {
		if err := s.checkpoint.MarkDone(ctx, runID, walletID); err != nil {
			// The pass committed; a lost checkpoint only means a redo on resume.
			s.logger.Printf("[sweep] %s: checkpoint failed: %v", walletID, err)
		}
	}
	return "ok", nil
}

func (s *Sweep) filter(wallets []string, result *SweepResult) []string {
	out := make([]string, 0, len(wallets))
	seen := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		if _, dup := seen[w]; dup {
			result.Total--
			continue
		}
		seen[w] = struct{}{}

		if s.skipPDAs {
			onCurve, err := pubkey.IsOnCurve(w)
			if err != nil || !onCurve {
				result.Skipped++
				continue
			}
		}
		out = append(out, w)
	}
	return out
}
