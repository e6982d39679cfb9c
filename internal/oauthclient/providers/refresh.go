package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// assertionSource supplies a fresh client_assertion JWT for
// private_key_jwt client authentication; nil for basic/post/none auth.
type assertionSource func(ctx context.Context, audience string) (string, error)

// refreshTokens implements spec §4.7.5: POST grant_type=refresh_token
// with the stored refresh token and client auth. A response that omits
// a new refresh_token preserves the original one. invalid_grant
// propagates unchanged (it is not retried here).
func refreshTokens(ctx context.Context, client HTTPDoer, tokenEndpoint, resource string, old *oauth.TokenSet, creds clientCredentials, assertion assertionSource, assertionAudience string) (*oauth.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", oauth.GrantTypeRefreshToken)
	form.Set("refresh_token", old.RefreshToken)
	if resource != "" {
		form.Set("resource", resource)
	}

	if err := applyAssertionIfNeeded(ctx, form, assertion, assertionAudience); err != nil {
		return nil, err
	}

	refreshed, err := postTokenRequest(ctx, client, tokenEndpoint, form, creds)
	if err != nil {
		return nil, err
	}
	refreshed.IssuedAt = time.Now()
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = old.RefreshToken
	}
	return refreshed, nil
}

// applyAssertionIfNeeded populates client_assertion_type/client_assertion
// in form when a private_key_jwt assertion source is configured (spec
// §4.7.3: "a fresh assertion is requested for every token request,
// including refresh").
func applyAssertionIfNeeded(ctx context.Context, form url.Values, assertion assertionSource, audience string) error {
	if assertion == nil {
		return nil
	}
	jwt, err := assertion(ctx, audience)
	if err != nil {
		return clienterr.NewTokenRequestFailedError("applyAssertionIfNeeded", 0, err)
	}
	form.Set("client_assertion_type", oauth.ClientAssertionTypeJWTBearer)
	form.Set("client_assertion", jwt)
	return nil
}
