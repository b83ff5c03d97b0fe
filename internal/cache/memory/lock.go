// Package memory implements the coordination interfaces in process, for
// single-node deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"solana-wallet-ledger/internal/domain"
)

// LockManager is an in-process domain.LockManager. Locks expire after their
// TTL like their Redis counterparts.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
	seq   uint64
}

type lockEntry struct {
	id      uint64
	expires time.Time
}

// NewLockManager creates an in-process lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

// Acquire returns domain.ErrLockHeld when key is held and not expired.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if e, ok := lm.locks[key]; ok && now.Before(e.expires) {
		return nil, domain.ErrLockHeld
	}

	lm.seq++
	id := lm.seq
	lm.locks[key] = lockEntry{id: id, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			// An expired lock may have been taken over; only release our own.
			if e, ok := lm.locks[key]; ok && e.id == id {
				delete(lm.locks, key)
			}
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
