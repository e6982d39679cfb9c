package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/wire"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// HTTPDoer is the injectable HTTP client seam (spec §6 HTTPClient).
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// clientCredentials bundles the client-authentication inputs every
// token-endpoint POST needs (spec §4.7.4).
type clientCredentials struct {
	method       string
	clientID     string
	clientSecret string
}

// postTokenRequest POSTs form (already populated with grant-specific
// parameters) to endpoint with auth applied per creds.method, and
// decodes either a TokenSet or an OAuthTokenErrorResponse per spec §4.7.
func postTokenRequest(ctx context.Context, client HTTPDoer, endpoint string, form url.Values, creds clientCredentials) (*oauth.TokenSet, error) {
	authHeader := ApplyClientAuth(form, creds.method, creds.clientID, creds.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(wire.FormEncode(singleValues(form))))
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("postTokenRequest", 0, err)
	}
	req.Header.Set("Content-Type", oauth.ContentTypeFormURLEncoded)
	req.Header.Set("Accept", oauth.ContentTypeJSON)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("postTokenRequest", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, clienterr.NewTokenRequestFailedError("postTokenRequest", resp.StatusCode, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var tokens oauth.TokenSet
		if err := json.Unmarshal(raw, &tokens); err != nil {
			return nil, clienterr.NewTokenRequestFailedError("postTokenRequest", resp.StatusCode, err)
		}
		return &tokens, nil
	}

	var tokenErr oauth.OAuthTokenErrorResponse
	if err := json.Unmarshal(raw, &tokenErr); err != nil {
		return nil, clienterr.NewTokenRequestFailedError("postTokenRequest", resp.StatusCode,
			fmt.Errorf("token endpoint returned status %d with undecodable body", resp.StatusCode))
	}

	switch tokenErr.Error {
	case oauth.ErrorInvalidClient:
		return nil, clienterr.NewInvalidClientError("postTokenRequest", fmt.Errorf("%s", tokenErr.ErrorDescription))
	case oauth.ErrorInvalidGrant:
		return nil, clienterr.NewInvalidGrantError("postTokenRequest", fmt.Errorf("%s", tokenErr.ErrorDescription))
	default:
		return nil, clienterr.NewTokenRequestFailedError("postTokenRequest", resp.StatusCode,
			fmt.Errorf("%s: %s", tokenErr.Error, tokenErr.ErrorDescription))
	}
}

func singleValues(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
