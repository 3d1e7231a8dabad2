package service

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultTokenExpiry is how long a group token may go unused.
const DefaultTokenExpiry = 90 * 24 * time.Hour

// GenerateToken returns 32 lowercase hex characters from 16 random bytes.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsTokenExpired reports whether lastUsed is older than window. A token that
// has never been used does not expire.
func IsTokenExpired(lastUsed *time.Time, window time.Duration, now time.Time) bool {
	if lastUsed == nil {
		return false
	}
	return lastUsed.Add(window).Before(now)
}
