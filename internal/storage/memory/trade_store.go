package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore and
// storage.CorrectionStore.
type TradeStore struct {
	mu          sync.RWMutex
	data        map[string]*domain.Trade // keyed by trade id
	corrections []*domain.Correction
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range trades {
		if t == nil || t.ID == "" || t.WalletID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range trades {
		s.data[t.ID] = cloneTrade(t)
	}

	return nil
}

// ListTrades retrieves a wallet's live trades ordered by (timestamp, sequence, id) ASC.
func (s *TradeStore) ListTrades(_ context.Context, walletID string, filter domain.TradeFilter) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.WalletID != walletID || t.DeletedAt != nil {
			continue
		}
		if filter.AssetID != "" && t.AssetID != filter.AssetID {
			continue
		}
		if filter.Since != nil && t.Timestamp < *filter.Since {
			continue
		}
		result = append(result, cloneTrade(t))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.ID < b.ID
	})

	return result, nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneTrade(t), nil
}

// ListWallets returns every wallet with at least one live trade, sorted.
func (s *TradeStore) ListWallets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.data {
		if t.DeletedAt == nil {
			seen[t.WalletID] = struct{}{}
		}
	}

	wallets := make([]string, 0, len(seen))
	for w := range seen {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets, nil
}

// SoftDelete marks a trade deleted. Returns ErrNotFound if not exists.
func (s *TradeStore) SoftDelete(_ context.Context, tradeID string, deletedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tradeID]
	if !exists {
		return storage.ErrNotFound
	}
	ts := deletedAt
	t.DeletedAt = &ts
	return nil
}

// ApplyCorrection sets the trade's side and records the audit row.
func (s *TradeStore) ApplyCorrection(_ context.Context, c *domain.Correction) error {
	if c == nil || c.ID == "" || c.TradeID == "" || !c.ToSide.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[c.TradeID]
	if !exists {
		return storage.ErrNotFound
	}
	if t.Side != c.FromSide {
		return storage.ErrInvalidInput
	}
	for _, existing := range s.corrections {
		if existing.ID == c.ID {
			return storage.ErrDuplicateKey
		}
	}

	t.Side = c.ToSide
	cc := *c
	cc.WalletID = t.WalletID
	s.corrections = append(s.corrections, &cc)
	return nil
}

// GetByWallet retrieves a wallet's corrections ordered by applied_at ASC.
func (s *TradeStore) GetByWallet(_ context.Context, walletID string) ([]*domain.Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Correction
	for _, c := range s.corrections {
		if c.WalletID == walletID {
			cc := *c
			result = append(result, &cc)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AppliedAt < result[j].AppliedAt
	})
	return result, nil
}

func cloneTrade(t *domain.Trade) *domain.Trade {
	c := *t
	if t.DeletedAt != nil {
		ts := *t.DeletedAt
		c.DeletedAt = &ts
	}
	return &c
}

var (
	_ storage.TradeStore      = (*TradeStore)(nil)
	_ storage.CorrectionStore = (*TradeStore)(nil)
)
