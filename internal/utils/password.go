package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes plain with bcrypt.  A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
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

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// VerifyPassword compares plain against a bcrypt hash.  An empty hash
// (no such account) still runs one comparison so that login answers take
// the same time whether or not the email exists.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		dummyOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gymdesk-no-account"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
