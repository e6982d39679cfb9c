// Package providers implements the OAuth 2.1 client token-acquisition
// flows of spec.md §4.7: authorization-code + PKCE, client-credentials,
// and private-key-JWT, sharing client-authentication-method selection,
// token-endpoint exchange, and refresh logic.
package providers

import (
	"encoding/base64"
	"net/url"

	"github.com/jamesprial/mcp-oauth-2.1/internal/wire"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// defaultServerSupported is RFC 8414's default when an AS omits
// token_endpoint_auth_methods_supported entirely.
var defaultServerSupported = []string{oauth.AuthMethodClientSecretBasic}

// confidentialPreferenceOrder / publicPreferenceOrder are the §4.7.4
// fallback orders when the client's stated preference isn't in the
// server's supported list.
var (
	confidentialPreferenceOrder = []string{oauth.AuthMethodClientSecretBasic, oauth.AuthMethodClientSecretPost, oauth.AuthMethodNone}
	publicPreferenceOrder       = []string{oauth.AuthMethodNone, oauth.AuthMethodClientSecretPost, oauth.AuthMethodClientSecretBasic}
)

// SelectClientAuthMethod implements spec §4.7.4: if the client's stated
// preference is supported by the server, use it; else pick the first of
// the confidential/public preference order (by whether hasSecret) that
// the server supports; final fallback is "none".
func SelectClientAuthMethod(serverSupported []string, clientPreference string, hasSecret bool) string {
	supported := serverSupported
	if len(supported) == 0 {
		supported = defaultServerSupported
	}

	if clientPreference != "" && contains(supported, clientPreference) {
		return clientPreference
	}

	order := publicPreferenceOrder
	if hasSecret {
		order = confidentialPreferenceOrder
	}
	for _, candidate := range order {
		if contains(supported, candidate) {
			return candidate
		}
	}
	return oauth.AuthMethodNone
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// ApplyClientAuth implements spec §4.7.4's application rules for
// basic/post/none: it mutates form with whatever credentials belong in
// the body, and returns a non-empty Authorization header value for
// "basic" (empty otherwise, meaning "set no Authorization header").
//
//   - basic: returns "Basic base64(urlEncode(id)":"urlEncode(secret))".
//     The body MUST NOT carry credentials.
//   - post: body gets client_id and client_secret; no Authorization header.
//   - none: body gets client_id only; no Authorization header; requires
//     no secret.
func ApplyClientAuth(form url.Values, method, clientID, clientSecret string) (authorizationHeader string) {
	switch method {
	case oauth.AuthMethodClientSecretBasic:
		credentials := wire.PercentEncode(clientID) + ":" + wire.PercentEncode(clientSecret)
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
	case oauth.AuthMethodClientSecretPost:
		form.Set("client_id", clientID)
		form.Set("client_secret", clientSecret)
	default: // "none" and anything unrecognized falls back to "none" semantics
		form.Set("client_id", clientID)
	}
	return ""
}
