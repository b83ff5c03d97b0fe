package storage

import (
	"context"

	"solana-wallet-ledger/internal/domain"
)

// TradeStore provides access to trades storage. It is the trade source of
// the matching engine.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate id.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// ListTrades retrieves a wallet's trades ordered by (timestamp, sequence, id) ASC.
	// Soft-deleted trades are excluded; void trades are included.
	ListTrades(ctx context.Context, walletID string, filter domain.TradeFilter) ([]*domain.Trade, error)

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// ListWallets returns every wallet with at least one live trade, sorted.
	ListWallets(ctx context.Context) ([]string, error)

	// SoftDelete marks a trade deleted. Returns ErrNotFound if not exists.
	SoftDelete(ctx context.Context, tradeID string, deletedAt int64) error
}

// CorrectionStore provides access to trade_corrections storage.
type CorrectionStore interface {
	// ApplyCorrection sets the trade's side to c.ToSide and appends the audit
	// row in one transaction. Returns ErrNotFound if the trade does not exist,
	// ErrInvalidInput if the trade's current side differs from c.FromSide.
	ApplyCorrection(ctx context.Context, c *domain.Correction) error

	// GetByWallet retrieves a wallet's corrections ordered by applied_at ASC.
	GetByWallet(ctx context.Context, walletID string) ([]*domain.Correction, error)
}

// ClosedLotFilter narrows a closed lot query.
type ClosedLotFilter struct {
	AssetID string // empty = all assets
	From    *int64 // inclusive lower bound on exit time
}

// LedgerStore provides access to closed_lots and open_positions storage.
type LedgerStore interface {
	// ReplaceClosedLots deletes all closed lots for the wallet and inserts lots atomically.
	ReplaceClosedLots(ctx context.Context, walletID string, lots []*domain.ClosedLot) error

	// GetClosedLots retrieves closed lots ordered by (exit_time, asset_id, sequence) ASC.
	GetClosedLots(ctx context.Context, walletID string, filter ClosedLotFilter) ([]*domain.ClosedLot, error)

	// UpsertOpenPositions inserts or replaces positions keyed by (wallet_id, asset_id).
	UpsertOpenPositions(ctx context.Context, walletID string, positions []*domain.OpenPosition) error

	// DeleteOpenPositions removes all open positions for the wallet.
	DeleteOpenPositions(ctx context.Context, walletID string) error

	// GetOpenPositions retrieves positions ordered by asset_id ASC.
	GetOpenPositions(ctx context.Context, walletID string) ([]*domain.OpenPosition, error)
}

// ScoreStore provides access to wallet_score_snapshots storage (append-only).
type ScoreStore interface {
	// AppendScoreSnapshot adds a snapshot. Returns ErrDuplicateKey if (wallet_id, computed_at) exists.
	AppendScoreSnapshot(ctx context.Context, m *domain.WalletMetrics) error

	// LatestScoreSnapshot retrieves the newest snapshot. Returns ErrNotFound if none.
	LatestScoreSnapshot(ctx context.Context, walletID string) (*domain.WalletMetrics, error)

	// ScoreHistory retrieves snapshots with computed_at within [from, to] (inclusive), ASC.
	ScoreHistory(ctx context.Context, walletID string, from, to int64) ([]*domain.WalletMetrics, error)

	// LatestAll retrieves the newest snapshot per wallet ordered by score DESC, wallet ASC.
	// limit <= 0 means no limit.
	LatestAll(ctx context.Context, limit int) ([]*domain.WalletMetrics, error)
}

// PassCommit is the full derived state of one wallet pass.
type PassCommit struct {
	WalletID      string
	ClosedLots    []*domain.ClosedLot
	OpenPositions []*domain.OpenPosition
	Metrics       *domain.WalletMetrics
}

// PassCommitter persists a wallet pass atomically: closed lots are replaced,
// open positions are replaced (deleted when empty) and the score snapshot is
// appended. Either everything is visible or nothing is.
type PassCommitter interface {
	CommitPass(ctx context.Context, c *PassCommit) error
}

// PriceTimeseriesStore provides access to price_timeseries storage.
type PriceTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (asset_id, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PriceTimeseriesPoint) error

	// GetByAssetID retrieves all points for an asset, ordered by timestamp ASC.
	GetByAssetID(ctx context.Context, assetID string) ([]*domain.PriceTimeseriesPoint, error)

	// GetByTimeRange retrieves points for an asset within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.PriceTimeseriesPoint, error)
}

// ScoreHistoryStore provides access to the score_history analytics table.
type ScoreHistoryStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (wallet_id, computed_at).
	InsertBulk(ctx context.Context, points []*domain.ScoreHistoryPoint) error

	// GetByWallet retrieves points within [from, to] (inclusive), ordered by computed_at ASC.
	GetByWallet(ctx context.Context, walletID string, from, to int64) ([]*domain.ScoreHistoryPoint, error)
}
