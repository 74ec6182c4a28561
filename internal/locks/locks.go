// Package locks provides lease-based mutual exclusion for billing runs.
// A lock is acquired with a TTL and an opaque token; release only
// succeeds while the holder's token still matches, so an expired lease
// reclaimed by another worker is never deleted by the original holder.
package locks

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmptyKey   = errors.New("lock key is empty")
	ErrInvalidTTL = errors.New("lock ttl must be positive")
)

// Locker is a lease provider. TryAcquire returns ok=false without
// error when the key is already held.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}
