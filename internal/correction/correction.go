// Package correction applies audited trade-quality fixes and rebuilds the
// affected wallet. Corrections are explicit operator actions; matching never
// reclassifies trades on its own.
package correction

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/idhash"
	"solana-wallet-ledger/internal/storage"
)

// RebuildFunc recomputes a wallet after a correction.
type RebuildFunc func(ctx context.Context, walletID string) error

// Request describes a side change for one trade.
type Request struct {
	TradeID string
	ToSide  domain.Side
	Reason  string
	Actor   string
}

// Service applies corrections.
type Service struct {
	trades      storage.TradeStore
	corrections storage.CorrectionStore
	rebuild     RebuildFunc
	now         func() time.Time
	logger      *log.Logger
}

// Options for creating a Service.
type Options struct {
	Trades      storage.TradeStore
	Corrections storage.CorrectionStore
	Rebuild     RebuildFunc // optional
	Now         func() time.Time
	Logger      *log.Logger
}

// NewService creates a new correction service.
func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		trades:      opts.Trades,
		corrections: opts.Corrections,
		rebuild:     opts.Rebuild,
		now:         now,
		logger:      logger,
	}
}

// Apply changes the trade's side, records the audit row and rebuilds the
// wallet. A correction that would not change the side returns
// storage.ErrInvalidInput. When the rebuild fails the correction stays
// applied and the returned correction is non-nil alongside the error.
func (s *Service) Apply(ctx context.Context, req Request) (*domain.Correction, error) {
	if req.TradeID == "" || !req.ToSide.Valid() {
		return nil, fmt.Errorf("correction request: %w", storage.ErrInvalidInput)
	}

	trade, err := s.trades.GetByID(ctx, req.TradeID)
	if err != nil {
		return nil, fmt.Errorf("get trade %s: %w", req.TradeID, err)
	}
	if trade.Side == req.ToSide {
		return nil, fmt.Errorf("trade %s already %s: %w", req.TradeID, req.ToSide, storage.ErrInvalidInput)
	}

	appliedAt := s.now().UnixMilli()
	c := &domain.Correction{
		ID:        idhash.ComputeCorrectionID(req.TradeID, trade.Side, req.ToSide, appliedAt),
		TradeID:   req.TradeID,
		WalletID:  trade.WalletID,
		FromSide:  trade.Side,
		ToSide:    req.ToSide,
		Reason:    req.Reason,
		Actor:     req.Actor,
		AppliedAt: appliedAt,
	}
	if err := s.corrections.ApplyCorrection(ctx, c); err != nil {
		return nil, fmt.Errorf("apply correction: %w", err)
	}
	s.logger.Printf("[correction] %s: trade %s %s -> %s by %s (%s)",
		c.WalletID, c.TradeID, c.FromSide, c.ToSide, c.Actor, c.Reason)

	if s.rebuild != nil {
		if err := s.rebuild(ctx, c.WalletID); err != nil {
			return c, fmt.Errorf("rebuild wallet %s: %w", c.WalletID, err)
		}
	}
	return c, nil
}

// History returns the wallet's corrections in application order.
func (s *Service) History(ctx context.Context, walletID string) ([]*domain.Correction, error) {
	return s.corrections.GetByWallet(ctx, walletID)
}
