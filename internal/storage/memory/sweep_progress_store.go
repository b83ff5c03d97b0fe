package memory

import (
	"context"
	"sort"
	"sync"

	"solana-wallet-ledger/internal/storage"
)

// SweepProgressStore is an in-memory implementation of storage.SweepProgressStore.
type SweepProgressStore struct {
	mu   sync.RWMutex
	done map[string]map[string]bool // run_id -> wallet_id
}

// NewSweepProgressStore creates a new in-memory sweep progress store.
func NewSweepProgressStore() *SweepProgressStore {
	return &SweepProgressStore{
		done: make(map[string]map[string]bool),
	}
}

// MarkDone records that a wallet finished within a run. Idempotent.
func (s *SweepProgressStore) MarkDone(_ context.Context, runID, walletID string) error {
	if runID == "" || walletID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallets, ok := s.done[runID]
	if !ok {
		wallets = make(map[string]bool)
		s.done[runID] = wallets
	}
	wallets[walletID] = true
	return nil
}

// IsDone checks if a wallet finished within a run.
func (s *SweepProgressStore) IsDone(_ context.Context, runID, walletID string) (bool, error) {
	if runID == "" || walletID == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.done[runID][walletID], nil
}

// CompletedWallets returns wallets marked done for the run, sorted.
func (s *SweepProgressStore) CompletedWallets(_ context.Context, runID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]string, 0, len(s.done[runID]))
	for w := range s.done[runID] {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets, nil
}

var _ storage.SweepProgressStore = (*SweepProgressStore)(nil)
