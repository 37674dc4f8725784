package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenDigest returns the hex SHA-256 of a credential string. Cache keys embed
// the digest instead of the raw credential so a key dump or SCAN output cannot
// be replayed as a bearer token.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
