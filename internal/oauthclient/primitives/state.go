package primitives

import (
	"crypto/rand"

	"github.com/jamesprial/mcp-oauth-2.1/internal/wire"
)

// stateByteLength is the 32 cryptographically random bytes spec.md §4.5
// mandates for the CSRF state parameter.
const stateByteLength = 32

// NewState generates a base64url-encoded (no padding) CSRF state token.
func NewState() (string, error) {
	buf := make([]byte, stateByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return wire.Base64URLEncode(buf), nil
}

// StateEqual compares two state values in constant time via an
// XOR-accumulate loop with no short-circuiting, so timing does not leak
// how many leading bytes matched. Unequal lengths are compared byte-wise
// against the longer value's length and always report false, without an
// early return on the length check itself.
func StateEqual(a, b string) bool {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	var diff byte
	if len(a) != len(b) {
		diff = 1
	}
	for i := 0; i < maxLen; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		diff |= ca ^ cb
	}
	return diff == 0
}
