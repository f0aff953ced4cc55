// fingerprint.go generates stable hashes for grouping similar errors.

package faultline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint generates a deterministic hash for grouping similar errors.
// The fingerprint is based on:
//   - category and error type
//   - the normalized message (variable payloads masked)
//   - the originating function name
//
// It ignores record IDs, timestamps, counts, and raw stack traces, so the
// same defect always maps to the same group regardless of when or how often
// it fires. Moving the error to a different function produces a different
// fingerprint.
func Fingerprint(category Category, errType, normalizedMessage, functionName string) string {
	parts := []string{
		string(category),
		errType,
		normalizedMessage,
		functionName,
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}
