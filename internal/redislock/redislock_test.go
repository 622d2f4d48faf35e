package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, 10*time.Second), mr
}

func TestTryLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	l, mr := setupLocker(t)

	unlock, ok, err := l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:session:1"))

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.TryLock(ctx, "session:2")
	require.NoError(t, err)
	assert.True(t, ok, "locks are per key")

	unlock()
	assert.False(t, mr.Exists("lock:session:1"))

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := setupLocker(t)

	_, ok, err := l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaleUnlockKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	l, mr := setupLocker(t)

	staleUnlock, ok, err := l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(11 * time.Second)

	_, ok, err = l.TryLock(ctx, "session:1")
	require.NoError(t, err)
	require.True(t, ok)

	staleUnlock()
	assert.True(t, mr.Exists("lock:session:1"))
}

func TestTryLockReportsBackendErrors(t *testing.T) {
	l, mr := setupLocker(t)
	mr.Close()

	_, ok, err := l.TryLock(context.Background(), "session:1")
	assert.Error(t, err)
	assert.False(t, ok)
}
