package locks

import (
	"context"
	"sync"
	"time"
)

// Manager is the mutual-exclusion primitive guarding slot commits. A lock is
// an advisory record keyed by the slot's natural key; holders must release
// it, but a crashed holder self-heals once the TTL elapses because the next
// Acquire reclaims the expired record.
type Manager interface {
	// Acquire installs a lock for key iff no unexpired lock exists. It
	// returns false on contention; callers treat that as retryable, not
	// fatal.
	Acquire(ctx context.Context, key string, ttl time.Duration) bool
	// Release removes the lock for key. Releasing an absent key is a no-op.
	Release(ctx context.Context, key string)
	// Extend pushes the expiry of an existing lock. Returns false if no
	// record exists for key.
	Extend(ctx context.Context, key string, ttl time.Duration) bool
}

type record struct {
	acquiredAt time.Time
	expiresAt  time.Time
}

// memoryManager keeps lock records in a mutex-guarded map. The check-then-set
// in Acquire happens under the mutex, so two concurrent callers can never
// both observe "no record" and both install one.
type memoryManager struct {
	mu    sync.Mutex
	locks map[string]record
	now   func() time.Time
}

func NewMemoryManager() Manager {
	return &memoryManager{
		locks: make(map[string]record),
		now:   time.Now,
	}
}

func (m *memoryManager) Acquire(_ context.Context, key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.locks[key]; ok {
		if existing.expiresAt.After(now) {
			return false
		}
		// Expired lock from an abandoned transaction, reclaim it.
		delete(m.locks, key)
	}

	m.locks[key] = record{
		acquiredAt: now,
		expiresAt:  now.Add(ttl),
	}
	return true
}

func (m *memoryManager) Release(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
}

func (m *memoryManager) Extend(_ context.Context, key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[key]
	if !ok {
		return false
	}
	existing.expiresAt = m.now().Add(ttl)
	m.locks[key] = existing
	return true
}
