// Package checksum fingerprints stored recipe documents and cached import
// results.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// MatchETag reports whether an If-None-Match header value matches sum.
func MatchETag(header, sum string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		tag = strings.TrimPrefix(tag, "W/")
		if tag == ETag(sum) {
			return true
		}
	}
	return false
}
