package locks

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestManager(now *time.Time) *memoryManager {
	return &memoryManager{
		locks: make(map[string]record),
		now:   func() time.Time { return *now },
	}
}

func TestAcquire_SecondCallFails(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	ctx := context.Background()

	if !m.Acquire(ctx, "prov-1:2025-03-10:10:00", 30*time.Second) {
		t.Fatal("first acquire should succeed")
	}
	if m.Acquire(ctx, "prov-1:2025-03-10:10:00", 30*time.Second) {
		t.Fatal("second acquire on held key should fail")
	}
}

func TestAcquire_ReclaimsExpiredLock(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	ctx := context.Background()

	if !m.Acquire(ctx, "key", 30*time.Second) {
		t.Fatal("first acquire should succeed")
	}

	now = now.Add(31 * time.Second)

	if !m.Acquire(ctx, "key", 30*time.Second) {
		t.Fatal("acquire after TTL elapsed should reclaim the abandoned lock")
	}
}

func TestAcquire_ExactExpiryInstantStillHeld(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	ctx := context.Background()

	m.Acquire(ctx, "key", 30*time.Second)
	now = now.Add(30 * time.Second)

	// expires_at == now means the lock no longer protects anything
	if !m.Acquire(ctx, "key", 30*time.Second) {
		t.Fatal("acquire at the expiry instant should succeed")
	}
}

func TestRelease_AllowsReacquire(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	ctx := context.Background()

	m.Acquire(ctx, "key", 30*time.Second)
	m.Release(ctx, "key")

	if !m.Acquire(ctx, "key", 30*time.Second) {
		t.Fatal("acquire after release should succeed")
	}
}

func TestRelease_UnheldKeyIsNoOp(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)

	// must not panic or error
	m.Release(context.Background(), "never-held")
}

func TestExtend(t *testing.T) {
	now := time.Now()
	m := newTestManager(&now)
	ctx := context.Background()

	if m.Extend(ctx, "key", time.Minute) {
		t.Fatal("extend without a lock record should return false")
	}

	m.Acquire(ctx, "key", 30*time.Second)
	if !m.Extend(ctx, "key", 5*time.Minute) {
		t.Fatal("extend on a held lock should return true")
	}

	now = now.Add(2 * time.Minute)
	if m.Acquire(ctx, "key", 30*time.Second) {
		t.Fatal("lock should still be held after extension")
	}
}

func TestAcquire_ConcurrentSingleWinner(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire(ctx, "contended", 30*time.Second) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestAcquire_IndependentKeys(t *testing.T) {
	m := NewMemoryManager()
	ctx := context.Background()

	if !m.Acquire(ctx, "prov-1:2025-03-10:10:00", 30*time.Second) {
		t.Fatal("acquire on first key should succeed")
	}
	if !m.Acquire(ctx, "prov-1:2025-03-10:10:30", 30*time.Second) {
		t.Fatal("acquire on a different key should succeed")
	}
}
