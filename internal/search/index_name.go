package search

import (
	"crypto/sha256"
	"encoding/hex"
)

// UserIndex derives the name of a user's personal knowledge-summary index.
// Index names have character restrictions, so the user id is hashed rather
// than embedded directly.
func UserIndex(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return "user-" + hex.EncodeToString(sum[:])
}
