package wire

import (
	"encoding/base64"
	"sort"
	"strings"
)

// isUnreserved reports whether b is an RFC 3986 unreserved character:
// A-Z a-z 0-9 - . _ ~
func isUnreserved(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	default:
		return false
	}
}

// PercentEncode percent-encodes s, leaving only RFC 3986 unreserved
// characters unescaped (spec §4.7.4: client_secret_basic credentials are
// urlEncoded this way before base64, so "@", ":", "/", "+" get escaped).
func PercentEncode(s string) string {
	return percentEncode(s)
}

// percentEncode percent-encodes s, leaving only RFC 3986 unreserved
// characters unescaped. Unlike net/url's form encoding, which writes a
// space as "+", a space here becomes "%20".
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		const hex = "0123456789ABCDEF"
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// FormEncode produces a deterministic application/x-www-form-urlencoded
// body: keys sorted lexicographically, values percent-encoded against the
// RFC 3986 unreserved set only (spec §4.1/§4.5).
func FormEncode(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, percentEncode(k)+"="+percentEncode(values[k]))
	}
	return strings.Join(parts, "&")
}

// Base64URLEncode encodes data as standard base64 with '+'->'-',
// '/'->'_' and padding removed.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes a base64url string without padding.
func Base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
