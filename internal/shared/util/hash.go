package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex SHA-256 of s. Used for storing one-time codes.
func HashToken(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
