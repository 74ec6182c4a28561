package locks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/dairyos/internal/clock"
)

func TestMemoryLockerExclusion(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC))
	locker := NewMemoryLocker(fake)
	ctx := context.Background()

	token, ok, err := locker.TryAcquire(ctx, "bill:generate:42:2026-02", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryAcquire(ctx, "bill:generate:42:2026-02", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lease must not be re-acquired")

	// A different key is independent.
	_, ok, err = locker.TryAcquire(ctx, "bill:generate:43:2026-02", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locker.Release(ctx, "bill:generate:42:2026-02", token))

	_, ok, err = locker.TryAcquire(ctx, "bill:generate:42:2026-02", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released lease is free to claim")
}

func TestMemoryLockerExpiry(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC))
	locker := NewMemoryLocker(fake)
	ctx := context.Background()

	staleToken, ok, err := locker.TryAcquire(ctx, "reconcile:daily", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	fake.Advance(2 * time.Minute)

	freshToken, ok, err := locker.TryAcquire(ctx, "reconcile:daily", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is free to claim")

	// The stale holder must not release the fresh lease.
	require.NoError(t, locker.Release(ctx, "reconcile:daily", staleToken))
	_, ok, err = locker.TryAcquire(ctx, "reconcile:daily", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "fresh lease survives a stale release")

	require.NoError(t, locker.Release(ctx, "reconcile:daily", freshToken))
}

func TestMemoryLockerValidation(t *testing.T) {
	fake := clock.NewFakeClock(time.Now().UTC())
	locker := NewMemoryLocker(fake)
	ctx := context.Background()

	_, _, err := locker.TryAcquire(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, _, err = locker.TryAcquire(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	assert.NoError(t, locker.Release(ctx, "", ""))
}
