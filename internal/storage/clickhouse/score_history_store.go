package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// ScoreHistoryStore implements storage.ScoreHistoryStore using ClickHouse.
type ScoreHistoryStore struct {
	conn *Conn
}

// NewScoreHistoryStore creates a new ScoreHistoryStore.
func NewScoreHistoryStore(conn *Conn) *ScoreHistoryStore {
	return &ScoreHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (wallet_id, computed_at).
func (s *ScoreHistoryStore) InsertBulk(ctx context.Context, points []*domain.ScoreHistoryPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("score_history_insert", start, err) }(time.Now())

	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.WalletID == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%d", p.WalletID, p.ComputedAt)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// ReplacingMergeTree would silently replace; keep append-only semantics.
	for _, p := range points {
		exists, err := s.exists(ctx, p.WalletID, p.ComputedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO score_history (wallet_id, computed_at, score, closed_trades, realized_pnl, win_rate)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.WalletID, p.ComputedAt, p.Score, uint32(p.ClosedTrades), p.RealizedPnL, p.WinRate); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByWallet retrieves points within [from, to] (inclusive), ordered by computed_at ASC.
func (s *ScoreHistoryStore) GetByWallet(ctx context.Context, walletID string, from, to int64) (_ []*domain.ScoreHistoryPoint, err error) {
	defer func(start time.Time) { observe("score_history_by_wallet", start, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT wallet_id, computed_at, score, closed_trades, realized_pnl, win_rate
		FROM score_history FINAL
		WHERE wallet_id = ? AND computed_at >= ? AND computed_at <= ?
		ORDER BY computed_at ASC
	`, walletID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	return scanScoreHistory(rows)
}

func (s *ScoreHistoryStore) exists(ctx context.Context, walletID string, computedAt int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM score_history
		WHERE wallet_id = ? AND computed_at = ?
	`, walletID, computedAt).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanScoreHistory(rows chRows) ([]*domain.ScoreHistoryPoint, error) {
	var points []*domain.ScoreHistoryPoint
	for rows.Next() {
		var (
			p            domain.ScoreHistoryPoint
			closedTrades uint32
		)
		if err := rows.Scan(&p.WalletID, &p.ComputedAt, &p.Score, &closedTrades, &p.RealizedPnL, &p.WinRate); err != nil {
			return nil, fmt.Errorf("scan score history row: %w", err)
		}
		p.ClosedTrades = int(closedTrades)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history rows: %w", err)
	}
	return points, nil
}
