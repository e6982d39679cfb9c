// Package primitives implements the low-level OAuth 2.1 building blocks:
// PKCE, state CSRF tokens, resource URL canonicalization/matching, the
// WWW-Authenticate tokenizer, and endpoint safety checks (spec §4.5).
package primitives

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/jamesprial/mcp-oauth-2.1/internal/wire"
)

// verifierAlphabet is the RFC 3986 unreserved character set PKCE
// verifiers are drawn from.
const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// verifierLength is the fixed verifier length spec.md §4.5 mandates.
const verifierLength = 128

// rejectionCeiling is the largest byte value rejection sampling keeps;
// bytes at or above it are discarded to remove modulo bias when mapping
// a random byte onto len(verifierAlphabet) == 66 buckets.
const rejectionCeiling = 256 - (256 % len(verifierAlphabet))

// NewCodeVerifier generates a 128-character PKCE code verifier using
// rejection sampling over crypto/rand so every character of the
// unreserved alphabet is equally likely.
func NewCodeVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	scratch := make([]byte, 1)
	for i := 0; i < verifierLength; {
		if _, err := rand.Read(scratch); err != nil {
			return "", err
		}
		b := scratch[0]
		if int(b) >= rejectionCeiling {
			continue
		}
		buf[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
		i++
	}
	return string(buf), nil
}

// CodeChallengeS256 computes the "S256" PKCE challenge for a verifier:
// base64url(SHA-256(ASCII(verifier))) without padding.
func CodeChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return wire.Base64URLEncode(sum[:])
}

// CodeChallengeMethod is always "S256"; this module never offers the
// deprecated "plain" method.
const CodeChallengeMethod = "S256"

// S256Supported reports whether an AS advertises S256 support. An absent
// code_challenge_methods_supported field is treated as UNSUPPORTED, not
// as "anything goes" — stricter than lenient SDKs (spec §4.5).
func S256Supported(codeChallengeMethodsSupported []string) bool {
	for _, m := range codeChallengeMethodsSupported {
		if m == CodeChallengeMethod {
			return true
		}
	}
	return false
}
