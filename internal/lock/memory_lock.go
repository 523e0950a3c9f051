package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLock implements Lock with an in-process map. Same contract as
// LeaseLock, usable for single-node deployments and tests.
type MemoryLock struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

// NewMemoryLock creates an in-process Lock
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (l *MemoryLock) Acquire(ctx context.Context, key string, ttl, timeout time.Duration) (bool, error) {
	deadline := l.now().Add(timeout)

	for {
		if l.tryAcquire(key, ttl) {
			return true, nil
		}

		if !l.now().Add(pollInterval).Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *MemoryLock) tryAcquire(key string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, expiresAt := range l.leases {
		if !expiresAt.After(now) {
			delete(l.leases, k)
		}
	}

	if _, held := l.leases[key]; held {
		return false
	}
	l.leases[key] = now.Add(ttl)
	return true
}

func (l *MemoryLock) Release(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}
