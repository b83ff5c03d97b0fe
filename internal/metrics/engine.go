package metrics

import (
	"context"
	"io"
	"log"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/ledger"
	"solana-wallet-ledger/internal/storage"
)

// Engine computes metrics from persisted trades and closed lots.
type Engine struct {
	trades        storage.TradeStore
	ledger        storage.LedgerStore
	oracle        domain.PriceOracle
	trackingStart *int64
	cfg           Config
	now           func() time.Time
	logger        *log.Logger
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	TradeStore  storage.TradeStore
	LedgerStore storage.LedgerStore
	// Oracle and TrackingStart must match the ledger engine so trades are
	// read and valued the way the pass that built the ledger saw them.
	Oracle        domain.PriceOracle // optional
	TrackingStart *int64
	Config        Config
	Now           func() time.Time // defaults to time.Now
	Logger        *log.Logger
}

// NewEngine creates a new metrics engine.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if len(cfg.Windows) == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		trades:        opts.TradeStore,
		ledger:        opts.LedgerStore,
		oracle:        opts.Oracle,
		trackingStart: opts.TrackingStart,
		cfg:           cfg,
		now:           now,
		logger:        logger,
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// CalculateMetrics computes metrics for the wallet's stored ledger. Trades
// before the tracking start are ignored and trades failing validation are
// counted as rejected, as in a pass. Store and oracle failures are
// returned as *domain.DependencyError.
func (e *Engine) CalculateMetrics(ctx context.Context, walletID string) (*domain.WalletMetrics, error) {
	trades, err := e.trades.ListTrades(ctx, walletID, domain.TradeFilter{Since: e.trackingStart})
	if err != nil {
		return nil, domain.NewDependencyError("trade_source", "list trades", err)
	}
	trades, _, err = ledger.Revalue(ctx, e.oracle, trades)
	if err != nil {
		return nil, err
	}
	var rejected []*domain.ValidationError
	for _, t := range trades {
		if t.Side == domain.SideVoid {
			continue
		}
		if verr := ledger.ValidateTrade(walletID, t); verr != nil {
			rejected = append(rejected, verr)
		}
	}

	lots, err := e.ledger.GetClosedLots(ctx, walletID, storage.ClosedLotFilter{})
	if err != nil {
		return nil, domain.NewDependencyError("ledger_store", "get closed lots", err)
	}
	positions, err := e.ledger.GetOpenPositions(ctx, walletID)
	if err != nil {
		return nil, domain.NewDependencyError("ledger_store", "get open positions", err)
	}

	m := e.Calculate(Input{
		WalletID:      walletID,
		Trades:        trades,
		ClosedLots:    lots,
		OpenPositions: len(positions),
		Rejected:      rejected,
	})
	return m, nil
}

// Calculate runs Calculate at the engine clock with the engine config.
func (e *Engine) Calculate(in Input) *domain.WalletMetrics {
	m := Calculate(in, e.now().UnixMilli(), e.cfg)
	if m.Empty {
		e.logger.Printf("[metrics] %s: no non-void trades", in.WalletID)
	} else if m.Inputs.PreHistoryLots > 0 {
		e.logger.Printf("[metrics] %s: %d pre-history lots included in PnL", in.WalletID, m.Inputs.PreHistoryLots)
	}
	return m
}
