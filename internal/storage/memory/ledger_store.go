package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu        sync.RWMutex
	lots      map[string][]*domain.ClosedLot               // keyed by wallet_id
	positions map[string]map[string]*domain.OpenPosition // wallet_id -> asset_id
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		lots:      make(map[string][]*domain.ClosedLot),
		positions: make(map[string]map[string]*domain.OpenPosition),
	}
}

// ReplaceClosedLots deletes all closed lots for the wallet and inserts lots atomically.
func (s *LedgerStore) ReplaceClosedLots(_ context.Context, walletID string, lots []*domain.ClosedLot) error {
	if err := validateClosedLots(walletID, lots); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLotsLocked(walletID, lots)
	return nil
}

func (s *LedgerStore) replaceLotsLocked(walletID string, lots []*domain.ClosedLot) {
	if len(lots) == 0 {
		delete(s.lots, walletID)
		return
	}
	stored := make([]*domain.ClosedLot, 0, len(lots))
	for _, l := range lots {
		stored = append(stored, cloneClosedLot(l))
	}
	s.lots[walletID] = stored
}

// validateClosedLots rejects lots that belong to another wallet or repeat
// an (asset_id, sequence) key.
func validateClosedLots(walletID string, lots []*domain.ClosedLot) error {
	if walletID == "" {
		return storage.ErrInvalidInput
	}
	type key struct {
		assetID  string
		sequence int64
	}
	seen := make(map[key]struct{}, len(lots))
	for _, l := range lots {
		if l == nil || l.WalletID != walletID || l.AssetID == "" {
			return storage.ErrInvalidInput
		}
		k := key{l.AssetID, l.Sequence}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}
	return nil
}

// GetClosedLots retrieves closed lots ordered by (exit_time, asset_id, sequence) ASC.
func (s *LedgerStore) GetClosedLots(_ context.Context, walletID string, filter storage.ClosedLotFilter) ([]*domain.ClosedLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClosedLot
	for _, l := range s.lots[walletID] {
		if filter.AssetID != "" && l.AssetID != filter.AssetID {
			continue
		}
		if filter.From != nil && l.ExitTime < *filter.From {
			continue
		}
		result = append(result, cloneClosedLot(l))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ExitTime != b.ExitTime {
			return a.ExitTime < b.ExitTime
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.Sequence < b.Sequence
	})

	return result, nil
}

// UpsertOpenPositions inserts or replaces positions keyed by (wallet_id, asset_id).
func (s *LedgerStore) UpsertOpenPositions(_ context.Context, walletID string, positions []*domain.OpenPosition) error {
	if err := validatePositions(walletID, positions); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byAsset, ok := s.positions[walletID]
	if !ok {
		byAsset = make(map[string]*domain.OpenPosition)
		s.positions[walletID] = byAsset
	}
	for _, p := range positions {
		byAsset[p.AssetID] = clonePosition(p)
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

// DeleteOpenPositions removes all open positions for the wallet.
func (s *LedgerStore) DeleteOpenPositions(_ context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.positions, walletID)
	return nil
}

// GetOpenPositions retrieves positions ordered by asset_id ASC.
func (s *LedgerStore) GetOpenPositions(_ context.Context, walletID string) ([]*domain.OpenPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OpenPosition
	for _, p := range s.positions[walletID] {
		result = append(result, clonePosition(p))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AssetID < result[j].AssetID
	})
	return result, nil
}

func (s *LedgerStore) replacePositionsLocked(walletID string, positions []*domain.OpenPosition) {
	if len(positions) == 0 {
		delete(s.positions, walletID)
		return
	}
	byAsset := make(map[string]*domain.OpenPosition, len(positions))
	for _, p := range positions {
		byAsset[p.AssetID] = clonePosition(p)
	}
	s.positions[walletID] = byAsset
}

func cloneClosedLot(l *domain.ClosedLot) *domain.ClosedLot {
	c := *l
	c.EntryPrice = cloneFloat(l.EntryPrice)
	c.CostBasis = cloneFloat(l.CostBasis)
	c.RealizedPnLPct = cloneFloat(l.RealizedPnLPct)
	if l.EntryTime != nil {
		v := *l.EntryTime
		c.EntryTime = &v
	}
	if l.HoldDurationMs != nil {
		v := *l.HoldDurationMs
		c.HoldDurationMs = &v
	}
	if l.BuyTradeID != nil {
		v := *l.BuyTradeID
		c.BuyTradeID = &v
	}
	return &c
}

func clonePosition(p *domain.OpenPosition) *domain.OpenPosition {
	c := *p
	c.Lots = append([]domain.OpenLot(nil), p.Lots...)
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

var _ storage.LedgerStore = (*LedgerStore)(nil)
