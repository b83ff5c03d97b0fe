// Package orchestrator runs wallet passes.
// A pass coordinates: lock → load trades → match → metrics → commit → mirror.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/ledger"
	"solana-wallet-ledger/internal/metrics"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/storage"
)

// DefaultLockTTL bounds how long a crashed pass can block its wallet.
const DefaultLockTTL = 2 * time.Minute

// Archiver stores a rebuilt ledger for audit.
type Archiver interface {
	ArchiveLedger(ctx context.Context, walletID string, computedAt int64, lots []*domain.ClosedLot) error
}

// Publisher receives every committed score snapshot.
type Publisher interface {
	Publish(m *domain.WalletMetrics)
}

// Pass recomputes one wallet's ledger and metrics and commits them atomically.
type Pass struct {
	ledger    *ledger.Engine
	metrics   *metrics.Engine
	committer storage.PassCommitter
	locks     domain.LockManager
	lockTTL   time.Duration
	matchOpts ledger.Options

	history   storage.ScoreHistoryStore
	archiver  Archiver
	publisher Publisher

	logger *log.Logger
}

// PassOptions for creating a Pass.
type PassOptions struct {
	// Required
	Ledger    *ledger.Engine
	Metrics   *metrics.Engine
	Committer storage.PassCommitter
	Locks     domain.LockManager
	LockTTL   time.Duration // defaults to DefaultLockTTL

	// LedgerOptions applies to every pass, e.g. a tracking start.
	LedgerOptions ledger.Options

	// Best-effort mirrors, each optional
	History   storage.ScoreHistoryStore
	Archiver  Archiver
	Publisher Publisher

	Logger *log.Logger // nil discards
}

// NewPass creates a new Pass.
func NewPass(opts PassOptions) *Pass {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Pass{
		ledger:    opts.Ledger,
		metrics:   opts.Metrics,
		committer: opts.Committer,
		locks:     opts.Locks,
		lockTTL:   ttl,
		matchOpts: opts.LedgerOptions,
		history:   opts.History,
		archiver:  opts.Archiver,
		publisher: opts.Publisher,
		logger:    logger,
	}
}

// PassResult summarizes a committed pass.
type PassResult struct {
	WalletID       string
	Metrics        *domain.WalletMetrics
	ClosedLots     int
	PreHistoryLots int
	OpenPositions  int
	Rejected       int
	Warnings       int
	Duration       time.Duration
}

// Run executes a full pass for walletID.
// Phases:
//  1. Acquire the wallet lock
//  2. Load and revalue trades
//  3. Match and calculate metrics
//  4. Commit closed lots, open positions and the score snapshot atomically
//  5. Mirror the snapshot (score history, archive, subscribers)
//
// Nothing is persisted when a phase before 4 fails. A held lock returns an
// error matching domain.ErrConcurrencyConflict.
func (p *Pass) Run(ctx context.Context, walletID string) (*PassResult, error) {
	start := time.Now()
	res, err := p.run(ctx, walletID)
	observability.RecordPass(passStatus(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	observability.RecordPassOutput(res.ClosedLots, res.PreHistoryLots, res.Rejected, res.Metrics.Score, time.Now().Unix())
	return res, nil
}

func (p *Pass) run(ctx context.Context, walletID string) (*PassResult, error) {
	if walletID == "" {
		return nil, fmt.Errorf("wallet id: %w", storage.ErrInvalidInput)
	}

	// Phase 1: Lock
	unlock, err := p.locks.Acquire(ctx, lockKey(walletID), p.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("wallet %s: %w", walletID, domain.ErrConcurrencyConflict)
		}
		return nil, domain.NewDependencyError("lock_manager", "acquire", err)
	}
	defer unlock()

	// Phase 2: Load
	trades, err := p.ledger.LoadTrades(ctx, walletID, p.matchOpts)
	if err != nil {
		return nil, err
	}

	// Phase 3: Match and score
	matched := p.ledger.MatchTrades(walletID, trades, p.matchOpts)
	m := p.metrics.Calculate(metrics.Input{
		WalletID:      walletID,
		Trades:        trades,
		ClosedLots:    matched.ClosedLots,
		OpenPositions: len(matched.OpenPositions),
		Rejected:      matched.Rejected,
	})

	// Phase 4: Commit
	err = p.committer.CommitPass(ctx, &storage.PassCommit{
		WalletID:      walletID,
		ClosedLots:    matched.ClosedLots,
		OpenPositions: matched.OpenPositions,
		Metrics:       m,
	})
	if err != nil {
		return nil, domain.NewDependencyError("ledger_store", "commit pass", err)
	}

	res := &PassResult{
		WalletID:       walletID,
		Metrics:        m,
		ClosedLots:     len(matched.ClosedLots),
		PreHistoryLots: m.Inputs.PreHistoryLots,
		OpenPositions:  len(matched.OpenPositions),
		Rejected:       len(matched.Rejected),
		Warnings:       len(matched.Warnings),
	}
	p.logger.Printf("[orchestrator] %s: committed %d closed lots, %d open positions, score %.2f (%d rejected, %d pre-history)",
		walletID, res.ClosedLots, res.OpenPositions, m.Score, res.Rejected, res.PreHistoryLots)

	// Phase 5: Mirror
	p.mirror(ctx, m, matched.ClosedLots)

	return res, nil
}

// mirror copies a committed snapshot to secondary sinks. Failures are
// logged only; the committed state is authoritative.
func (p *Pass) mirror(ctx context.Context, m *domain.WalletMetrics, lots []*domain.ClosedLot) {
	if p.history != nil {
		if err := p.history.InsertBulk(ctx, []*domain.ScoreHistoryPoint{m.HistoryPoint()}); err != nil {
			p.logger.Printf("[orchestrator] %s: score history mirror failed: %v", m.WalletID, err)
		}
	}
	if p.archiver != nil {
		if err := p.archiver.ArchiveLedger(ctx, m.WalletID, m.ComputedAt, lots); err != nil {
			p.logger.Printf("[orchestrator] %s: ledger archive failed: %v", m.WalletID, err)
		}
	}
	if p.publisher != nil {
		p.publisher.Publish(m)
	}
}

func lockKey(walletID string) string {
	return "pass:" + walletID
}

func passStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
