package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// execer is satisfied by *Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LedgerStore implements storage.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// ReplaceClosedLots deletes all closed lots for the wallet and inserts lots atomically.
func (s *LedgerStore) ReplaceClosedLots(ctx context.Context, walletID string, lots []*domain.ClosedLot) (err error) {
	if err := validateClosedLots(walletID, lots); err != nil {
		return err
	}
	defer func(start time.Time) { observe("closed_lots_replace", start, err) }(time.Now())

	return s.inTx(ctx, func(tx pgx.Tx) error {
		return replaceClosedLots(ctx, tx, walletID, lots)
	})
}

// GetClosedLots retrieves closed lots ordered by (exit_time, asset_id, sequence) ASC.
func (s *LedgerStore) GetClosedLots(ctx context.Context, walletID string, filter storage.ClosedLotFilter) (_ []*domain.ClosedLot, err error) {
	defer func(start time.Time) { observe("closed_lots_list", start, err) }(time.Now())

	query := `
		SELECT wallet_id, asset_id, sequence, id, quantity,
			entry_price, entry_time, exit_price, exit_time,
			cost_basis, proceeds, realized_pnl, realized_pnl_pct, hold_duration_ms,
			buy_trade_id, sell_trade_id, is_pre_history, entry_valuation, exit_valuation
		FROM closed_lots
		WHERE wallet_id = $1
			AND ($2 = '' OR asset_id = $2)
			AND ($3::BIGINT IS NULL OR exit_time >= $3)
		ORDER BY exit_time ASC, asset_id ASC, sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, walletID, filter.AssetID, filter.From)
	if err != nil {
		return nil, fmt.Errorf("query closed lots: %w", err)
	}
	defer rows.Close()

	var result []*domain.ClosedLot
	for rows.Next() {
		var (
			l                 domain.ClosedLot
			entryVal, exitVal string
		)
		if err := rows.Scan(
			&l.WalletID, &l.AssetID, &l.Sequence, &l.ID, &l.Quantity,
			&l.EntryPrice, &l.EntryTime, &l.ExitPrice, &l.ExitTime,
			&l.CostBasis, &l.Proceeds, &l.RealizedPnL, &l.RealizedPnLPct, &l.HoldDurationMs,
			&l.BuyTradeID, &l.SellTradeID, &l.IsPreHistory, &entryVal, &exitVal,
		); err != nil {
			return nil, fmt.Errorf("scan closed lot: %w", err)
		}
		l.EntryValuation = domain.ValuationKind(entryVal)
		l.ExitValuation = domain.ValuationKind(exitVal)
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed lots: %w", err)
	}
	return result, nil
}

// UpsertOpenPositions inserts or replaces positions keyed by (wallet_id, asset_id).
func (s *LedgerStore) UpsertOpenPositions(ctx context.Context, walletID string, positions []*domain.OpenPosition) (err error) {
	if len(positions) == 0 {
		return nil
	}
	if err := validatePositions(walletID, positions); err != nil {
		return err
	}
	defer func(start time.Time) { observe("open_positions_upsert", start, err) }(time.Now())

	return s.inTx(ctx, func(tx pgx.Tx) error {
		return upsertOpenPositions(ctx, tx, positions)
	})
}

// DeleteOpenPositions removes all open positions for the wallet.
func (s *LedgerStore) DeleteOpenPositions(ctx context.Context, walletID string) (err error) {
	defer func(start time.Time) { observe("open_positions_delete", start, err) }(time.Now())

	if _, err := s.pool.Exec(ctx, `DELETE FROM open_positions WHERE wallet_id = $1`, walletID); err != nil {
		return fmt.Errorf("delete open positions: %w", err)
	}
	return nil
}

// GetOpenPositions retrieves positions ordered by asset_id ASC.
func (s *LedgerStore) GetOpenPositions(ctx context.Context, walletID string) (_ []*domain.OpenPosition, err error) {
	defer func(start time.Time) { observe("open_positions_list", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT wallet_id, asset_id, lots, quantity, cost_basis, avg_unit_cost, last_trade_time
		FROM open_positions
		WHERE wallet_id = $1
		ORDER BY asset_id ASC
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var result []*domain.OpenPosition
	for rows.Next() {
		var (
			p       domain.OpenPosition
			lotsRaw []byte
		)
		if err := rows.Scan(&p.WalletID, &p.AssetID, &lotsRaw, &p.Quantity, &p.CostBasis, &p.AvgUnitCost, &p.LastTradeTime); err != nil {
			return nil, fmt.Errorf("scan open position: %w", err)
		}
		if err := json.Unmarshal(lotsRaw, &p.Lots); err != nil {
			return nil, fmt.Errorf("decode open lots: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open positions: %w", err)
	}
	return result, nil
}

func (s *LedgerStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func replaceClosedLots(ctx context.Context, tx execer, walletID string, lots []*domain.ClosedLot) error {
	if _, err := tx.Exec(ctx, `DELETE FROM closed_lots WHERE wallet_id = $1`, walletID); err != nil {
		return fmt.Errorf("delete closed lots: %w", err)
	}

	query := `
		INSERT INTO closed_lots (
			wallet_id, asset_id, sequence, id, quantity,
			entry_price, entry_time, exit_price, exit_time,
			cost_basis, proceeds, realized_pnl, realized_pnl_pct, hold_duration_ms,
			buy_trade_id, sell_trade_id, is_pre_history, entry_valuation, exit_valuation
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19
		)
	`
	for _, l := range lots {
		_, err := tx.Exec(ctx, query,
			l.WalletID, l.AssetID, l.Sequence, l.ID, l.Quantity,
			l.EntryPrice, l.EntryTime, l.ExitPrice, l.ExitTime,
			l.CostBasis, l.Proceeds, l.RealizedPnL, l.RealizedPnLPct, l.HoldDurationMs,
			l.BuyTradeID, l.SellTradeID, l.IsPreHistory, string(l.EntryValuation), string(l.ExitValuation),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert closed lot: %w", err)
		}
	}
	return nil
}

func upsertOpenPositions(ctx context.Context, tx execer, positions []*domain.OpenPosition) error {
	query := `
		INSERT INTO open_positions (wallet_id, asset_id, lots, quantity, cost_basis, avg_unit_cost, last_trade_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (wallet_id, asset_id) DO UPDATE SET
			lots = EXCLUDED.lots,
			quantity = EXCLUDED.quantity,
			cost_basis = EXCLUDED.cost_basis,
			avg_unit_cost = EXCLUDED.avg_unit_cost,
			last_trade_time = EXCLUDED.last_trade_time
	`
	for _, p := range positions {
		lots := p.Lots
		if lots == nil {
			lots = []domain.OpenLot{}
		}
		lotsRaw, err := json.Marshal(lots)
		if err != nil {
			return fmt.Errorf("encode open lots: %w", err)
		}
		if _, err := tx.Exec(ctx, query,
			p.WalletID, p.AssetID, lotsRaw, p.Quantity, p.CostBasis, p.AvgUnitCost, p.LastTradeTime,
		); err != nil {
			return fmt.Errorf("upsert open position: %w", err)
		}
	}
	return nil
}

func validateClosedLots(walletID string, lots []*domain.ClosedLot) error {
	if walletID == "" {
		return storage.ErrInvalidInput
	}
	for _, l := range lots {
		if l == nil || l.WalletID != walletID || l.AssetID == "" {
			return storage.ErrInvalidInput
		}
	}
	return nil
}

func validatePositions(walletID string, positions []*domain.OpenPosition) error {
	if walletID == "" {
		return storage.ErrInvalidInput
	}
	for _, p := range positions {
		if p == nil || p.WalletID != walletID || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
	}
	return nil
}
