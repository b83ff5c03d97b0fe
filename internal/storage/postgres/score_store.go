package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// ScoreStore implements storage.ScoreStore using PostgreSQL.
type ScoreStore struct {
	pool *Pool
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(pool *Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

const snapshotColumns = `wallet_id, computed_at, score, scoring_window, empty, components, windows, inputs`

// AppendScoreSnapshot adds a snapshot. Returns ErrDuplicateKey if (wallet_id, computed_at) exists.
func (s *ScoreStore) AppendScoreSnapshot(ctx context.Context, m *domain.WalletMetrics) (err error) {
	if m == nil || m.WalletID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("score_snapshots_append", start, err) }(time.Now())

	return appendScoreSnapshot(ctx, s.pool, m)
}

// LatestScoreSnapshot retrieves the newest snapshot. Returns ErrNotFound if none.
func (s *ScoreStore) LatestScoreSnapshot(ctx context.Context, walletID string) (_ *domain.WalletMetrics, err error) {
	defer func(start time.Time) { observe("score_snapshots_latest", start, err) }(time.Now())

	query := `SELECT ` + snapshotColumns + ` FROM wallet_score_snapshots
		WHERE wallet_id = $1
		ORDER BY computed_at DESC
		LIMIT 1`

	m, err := scanSnapshot(s.pool.QueryRow(ctx, query, walletID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest score snapshot: %w", err)
	}
	return m, nil
}

// ScoreHistory retrieves snapshots with computed_at within [from, to] (inclusive), ASC.
func (s *ScoreStore) ScoreHistory(ctx context.Context, walletID string, from, to int64) (_ []*domain.WalletMetrics, err error) {
	defer func(start time.Time) { observe("score_snapshots_history", start, err) }(time.Now())

	query := `SELECT ` + snapshotColumns + ` FROM wallet_score_snapshots
		WHERE wallet_id = $1 AND computed_at >= $2 AND computed_at <= $3
		ORDER BY computed_at ASC`

	rows, err := s.pool.Query(ctx, query, walletID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// LatestAll retrieves the newest snapshot per wallet ordered by score DESC, wallet ASC.
func (s *ScoreStore) LatestAll(ctx context.Context, limit int) (_ []*domain.WalletMetrics, err error) {
	defer func(start time.Time) { observe("score_snapshots_latest_all", start, err) }(time.Now())

	query := `
		SELECT ` + snapshotColumns + ` FROM (
			SELECT DISTINCT ON (wallet_id) ` + snapshotColumns + `
			FROM wallet_score_snapshots
			ORDER BY wallet_id, computed_at DESC
		) latest
		ORDER BY score DESC, wallet_id ASC`

	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func appendScoreSnapshot(ctx context.Context, tx execer, m *domain.WalletMetrics) error {
	components, err := json.Marshal(m.Components)
	if err != nil {
		return fmt.Errorf("encode components: %w", err)
	}
	windows, err := json.Marshal(m.Windows)
	if err != nil {
		return fmt.Errorf("encode windows: %w", err)
	}
	inputs, err := json.Marshal(m.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_score_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.WalletID, m.ComputedAt, m.Score, m.ScoringWindow, m.Empty, components, windows, inputs)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert score snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (*domain.WalletMetrics, error) {
	var (
		m                           domain.WalletMetrics
		components, windows, inputs []byte
	)
	if err := row.Scan(&m.WalletID, &m.ComputedAt, &m.Score, &m.ScoringWindow, &m.Empty, &components, &windows, &inputs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(components, &m.Components); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	if err := json.Unmarshal(windows, &m.Windows); err != nil {
		return nil, fmt.Errorf("decode windows: %w", err)
	}
	if err := json.Unmarshal(inputs, &m.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	return &m, nil
}

func scanSnapshots(rows pgx.Rows) ([]*domain.WalletMetrics, error) {
	var result []*domain.WalletMetrics
	for rows.Next() {
		m, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score snapshot: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score snapshots: %w", err)
	}
	return result, nil
}
