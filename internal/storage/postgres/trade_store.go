package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// TradeStore implements storage.TradeStore and storage.CorrectionStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.TradeStore      = (*TradeStore)(nil)
	_ storage.CorrectionStore = (*TradeStore)(nil)
)

const tradeColumns = `
	id, wallet_id, asset_id, side, token_amount, base_amount, price,
	ts, sequence, venue, valuation_kind, base_currency, valuation_source, deleted_at`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) (err error) {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.ID == "" || t.WalletID == "" {
			return storage.ErrInvalidInput
		}
	}
	defer func(start time.Time) { observe("trades_insert", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			t.ID, t.WalletID, t.AssetID, string(t.Side), t.TokenAmount, t.BaseAmount, t.Price,
			t.Timestamp, t.Sequence, t.Venue,
			string(t.Provenance.Kind.Normalize()), t.Provenance.BaseCurrency, t.Provenance.Source,
			t.DeletedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListTrades retrieves a wallet's live trades ordered by (timestamp, sequence, id) ASC.
func (s *TradeStore) ListTrades(ctx context.Context, walletID string, filter domain.TradeFilter) (_ []*domain.Trade, err error) {
	defer func(start time.Time) { observe("trades_list", start, err) }(time.Now())

	var (
		conds = []string{"wallet_id = $1", "deleted_at IS NULL"}
		args  = []any{walletID}
	)
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		conds = append(conds, fmt.Sprintf("asset_id = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conds = append(conds, fmt.Sprintf("ts >= $%d", len(args)))
	}

	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ts ASC, sequence ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByID retrieves a trade by its ID, including soft-deleted trades.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (_ *domain.Trade, err error) {
	defer func(start time.Time) { observe("trades_get", start, err) }(time.Now())

	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`
	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// ListWallets returns every wallet with at least one live trade, sorted.
func (s *TradeStore) ListWallets(ctx context.Context) (_ []string, err error) {
	defer func(start time.Time) { observe("trades_wallets", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT wallet_id FROM trades
		WHERE deleted_at IS NULL
		ORDER BY wallet_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, nil
}

// SoftDelete marks a trade deleted. Returns ErrNotFound if not exists.
func (s *TradeStore) SoftDelete(ctx context.Context, tradeID string, deletedAt int64) (err error) {
	defer func(start time.Time) { observe("trades_soft_delete", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx, `UPDATE trades SET deleted_at = $2 WHERE id = $1`, tradeID, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ApplyCorrection updates the trade side and appends the audit row in one
// transaction. The trade row is locked for the duration.
func (s *TradeStore) ApplyCorrection(ctx context.Context, c *domain.Correction) (err error) {
	if c == nil || c.ID == "" || c.TradeID == "" || !c.ToSide.Valid() {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("corrections_apply", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		walletID string
		side     string
	)
	err = tx.QueryRow(ctx, `SELECT wallet_id, side FROM trades WHERE id = $1 FOR UPDATE`, c.TradeID).
		Scan(&walletID, &side)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock trade: %w", err)
	}
	if domain.Side(side) != c.FromSide {
		return storage.ErrInvalidInput
	}

	if _, err := tx.Exec(ctx, `UPDATE trades SET side = $2 WHERE id = $1`, c.TradeID, string(c.ToSide)); err != nil {
		return fmt.Errorf("update trade side: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trade_corrections (id, trade_id, wallet_id, from_side, to_side, reason, actor, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.TradeID, walletID, string(c.FromSide), string(c.ToSide), c.Reason, c.Actor, c.AppliedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert correction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	c.WalletID = walletID
	return nil
}

// GetByWallet retrieves a wallet's corrections ordered by applied_at ASC.
func (s *TradeStore) GetByWallet(ctx context.Context, walletID string) (_ []*domain.Correction, err error) {
	defer func(start time.Time) { observe("corrections_list", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, trade_id, wallet_id, from_side, to_side, reason, actor, applied_at
		FROM trade_corrections
		WHERE wallet_id = $1
		ORDER BY applied_at ASC, id ASC
	`, walletID)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	var result []*domain.Correction
	for rows.Next() {
		var (
			c        domain.Correction
			from, to string
		)
		if err := rows.Scan(&c.ID, &c.TradeID, &c.WalletID, &from, &to, &c.Reason, &c.Actor, &c.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.FromSide = domain.Side(from)
		c.ToSide = domain.Side(to)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corrections: %w", err)
	}
	return result, nil
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t          domain.Trade
		side, kind string
	)
	err := row.Scan(
		&t.ID, &t.WalletID, &t.AssetID, &side, &t.TokenAmount, &t.BaseAmount, &t.Price,
		&t.Timestamp, &t.Sequence, &t.Venue, &kind, &t.Provenance.BaseCurrency, &t.Provenance.Source,
		&t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Side = domain.Side(side)
	t.Provenance.Kind = domain.ValuationKind(kind)
	return &t, nil
}

func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
