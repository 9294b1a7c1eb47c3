package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey derives the storage directory name for a user. Raw IDs carry
// provider prefixes like "google:" or "guest:" whose characters are unsafe
// in object keys, so the hex digest is used instead.
func HashUserKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}
