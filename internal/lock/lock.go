package lock

import (
	"context"
	"time"
)

// Lock provides per-key mutual exclusion with TTL-based auto-expiry.
// At most one live (non-expired) lease exists per key at any instant; an
// expired lease is equivalent to no lease and is reclaimable by any caller.
type Lock interface {
	// Acquire tries to take the lease for key until timeout elapses.
	// Returns (false, nil) on timeout; that is the normal busy outcome,
	// not an error. A timeout of zero makes exactly one attempt.
	Acquire(ctx context.Context, key string, ttl, timeout time.Duration) (bool, error)
	// Release drops the lease unconditionally. Releasing an already
	// released or expired lease is not an error.
	Release(key string) error
}

// pollInterval is the fixed backoff between acquire attempts.
const pollInterval = 100 * time.Millisecond
