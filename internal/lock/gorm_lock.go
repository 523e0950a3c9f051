package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// LeaseLock implements Lock on a database lease table. It survives process
// restarts and coordinates multiple instances; expired rows left by crashed
// holders are swept before every attempt, so a crash can block future
// callers for at most one TTL.
type LeaseLock struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLeaseLock creates a database-backed Lock. The connection must be opened
// with TranslateError enabled so duplicate inserts surface as
// gorm.ErrDuplicatedKey.
func NewLeaseLock(db *gorm.DB) *LeaseLock {
	return &LeaseLock{db: db, now: time.Now}
}

func (l *LeaseLock) Acquire(ctx context.Context, key string, ttl, timeout time.Duration) (bool, error) {
	deadline := l.now().Add(timeout)

	for {
		// Self-healing sweep: a crashed holder must not deadlock anyone
		// beyond its TTL.
		if err := l.db.Where("expires_at <= ?", l.now()).Delete(&Lease{}).Error; err != nil {
			return false, fmt.Errorf("failed to sweep expired leases: %w", err)
		}

		lease := Lease{Key: key, ExpiresAt: l.now().Add(ttl), CreatedAt: l.now()}
		err := l.db.Create(&lease).Error
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, fmt.Errorf("failed to insert lease: %w", err)
		}

		// Somebody else holds a live lease.
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

func (l *LeaseLock) Release(key string) error {
	return l.db.Where("lock_key = ?", key).Delete(&Lease{}).Error
}
