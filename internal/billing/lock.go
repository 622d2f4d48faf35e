package billing

import (
	"context"
	"log"
	"strconv"
)

// SessionLocker provides a best-effort mutual exclusion keyed by string.
// TryLock never blocks; acquired is false when another holder owns key.
type SessionLocker interface {
	TryLock(ctx context.Context, key string) (unlock func(), acquired bool, err error)
}

type nopLocker struct{}

func (nopLocker) TryLock(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

func sessionLockKey(sessionID uint64) string {
	return "session:" + strconv.FormatUint(sessionID, 10)
}

func entryLockKey(lotID uint64, plate string) string {
	return "entry:" + strconv.FormatUint(lotID, 10) + ":" + plate
}

// lockSession takes the settlement lock of a session.  A locker failure
// degrades to the unlocked path: the transaction still recomputes the fee
// right before committing.
func lockSession(ctx context.Context, l SessionLocker, sessionID uint64) (func(), error) {
	return acquire(ctx, l, sessionLockKey(sessionID), ErrSettlementInProgress)
}

// acquire takes key or returns busy when someone else holds it.
func acquire(ctx context.Context, l SessionLocker, key string, busy error) (func(), error) {
	unlock, ok, err := l.TryLock(ctx, key)
	if err != nil {
		log.Printf("billing: lock %s unavailable: %v", key, err)
		return func() {}, nil
	}
	if !ok {
		return nil, busy
	}
	return unlock, nil
}
