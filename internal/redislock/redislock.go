// Package redislock implements a best-effort distributed lock on Redis.
// A lock is a key set with NX and a TTL whose value is a random token; only
// the holder of the token may release it.
package redislock

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a
// holder whose lock already expired cannot release somebody else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out TTL-bound locks.  It satisfies billing.SessionLocker.
type Locker struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// New returns a Locker.  ttl bounds how long a crashed holder can block
// others; it should exceed the slowest expected settlement.
func New(rdb *redis.Client, ttl time.Duration) *Locker {
	if rdb == nil {
		panic("nil redis client")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{rdb: rdb, ttl: ttl, prefix: "lock:"}
}

// TryLock attempts to take key without waiting.  The returned unlock is
// safe to call more than once.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	key = l.prefix + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			log.Printf("redislock: release %s failed: %v", key, err)
		}
	}, true, nil
}
