package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ComputeSHA256 returns the hex encoded SHA-256 of message
func ComputeSHA256(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the SHA-256 of key equals expectedHex.
// The comparison runs in constant time, and an empty key or a malformed
// expectedHex fail after the same amount of hashing work.
func Verify(expectedHex, key string) bool {
	sum := sha256.Sum256([]byte(key))

	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) != len(sum) {
		expected = make([]byte, len(sum))
	}

	match := subtle.ConstantTimeCompare(expected, sum[:]) == 1
	return match && key != "" && err == nil && len(expectedHex) == 2*sha256.Size
}
