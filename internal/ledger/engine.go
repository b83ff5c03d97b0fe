package ledger

import (
	"context"
	"io"
	"log"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// Engine runs matching against the trade source.
type Engine struct {
	trades storage.TradeStore
	oracle domain.PriceOracle
	logger *log.Logger
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	TradeStore storage.TradeStore
	Oracle     domain.PriceOracle // optional, used for revaluation only
	Logger     *log.Logger
}

// NewEngine creates a new matching engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		trades: opts.TradeStore,
		oracle: opts.Oracle,
		logger: logger,
	}
}

// ProcessTrades loads the wallet's trades, revalues those without a
// valuation and runs a full FIFO match. Trade source and oracle failures
// are returned as *domain.DependencyError; invalid trades only show up in
// Result.Rejected.
func (e *Engine) ProcessTrades(ctx context.Context, walletID string, opts Options) (*Result, error) {
	trades, err := e.LoadTrades(ctx, walletID, opts)
	if err != nil {
		return nil, err
	}
	return e.MatchTrades(walletID, trades, opts), nil
}

// LoadTrades reads the wallet's trades from the trade source and revalues
// those that carry neither price nor base amount.
func (e *Engine) LoadTrades(ctx context.Context, walletID string, opts Options) ([]*domain.Trade, error) {
	filter := domain.TradeFilter{AssetID: opts.AssetID, Since: opts.TrackingStart}
	trades, err := e.trades.ListTrades(ctx, walletID, filter)
	if err != nil {
		return nil, domain.NewDependencyError("trade_source", "list trades", err)
	}

	trades, revalued, err := Revalue(ctx, e.oracle, trades)
	if err != nil {
		return nil, err
	}
	if revalued > 0 {
		e.logger.Printf("[ledger] %s: %d trades valued from oracle", walletID, revalued)
	}
	return trades, nil
}

// MatchTrades runs Match and logs rejections and pre-history warnings.
func (e *Engine) MatchTrades(walletID string, trades []*domain.Trade, opts Options) *Result {
	res := Match(walletID, trades, opts)
	for _, r := range res.Rejected {
		e.logger.Printf("[ledger] %s: rejected %v", walletID, r)
	}
	for _, w := range res.Warnings {
		e.logger.Printf("[ledger] %s", w)
	}
	return res
}
