// Package visitors derives the non-identity visitor id used for distinct
// visitor counting.
package visitors

import (
	"crypto/sha256"
	"encoding/hex"
)

// BuildVisitorId hashes IP address and user agent into a stable visitor
// identifier. The raw pair is never recoverable from the id; it exists only
// to estimate distinct visitors, never to identify anyone.
func BuildVisitorId(ipAddress, userAgent string) string {
	hash := sha256.Sum256([]byte(ipAddress + userAgent))
	return hex.EncodeToString(hash[:])
}
