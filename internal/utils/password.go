package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of plain.  A cost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	decoyMu     sync.Mutex
	decoyHashes = map[int][]byte{}
)

// decoyFor returns a throwaway hash generated at cost, built once per cost.
func decoyFor(cost int) []byte {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	decoyMu.Lock()
	defer decoyMu.Unlock()
	h, ok := decoyHashes[cost]
	if !ok {
		h, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), cost)
		decoyHashes[cost] = h
	}
	return h
}

// BurnPasswordCheck spends about as long as VerifyPassword on a hash made
// with cost.  Login calls it for unknown usernames so response times do not
// reveal which accounts exist.
func BurnPasswordCheck(plain string, cost int) {
	_ = bcrypt.CompareHashAndPassword(decoyFor(cost), []byte(plain))
}
