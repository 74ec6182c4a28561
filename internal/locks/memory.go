package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smallbiznis/dairyos/internal/clock"
)

type lease struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker implements Locker in-process. It honors the same lease
// semantics as the redis implementation: an expired lease is free to
// claim, and release requires the matching token.
type MemoryLocker struct {
	mu     sync.Mutex
	clock  clock.Clock
	leases map[string]lease
}

func NewMemoryLocker(c clock.Clock) *MemoryLocker {
	return &MemoryLocker{
		clock:  c,
		leases: make(map[string]lease),
	}
}

func (l *MemoryLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	if ttl <= 0 {
		return "", false, ErrInvalidTTL
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if held, exists := l.leases[key]; exists && held.expiresAt.After(now) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if held, exists := l.leases[key]; exists && held.token == token {
		delete(l.leases, key)
	}
	return nil
}
