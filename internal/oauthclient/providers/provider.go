package providers

import (
	"context"
	"time"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// nearExpiryWindow is the 60-second lookahead of spec §4.7.1: a token is
// "near expiry" once now + nearExpiryWindow >= expiresAt.
const nearExpiryWindow = 60 * time.Second

// Provider is the interface every OAuth client flow implements (spec §4.7).
type Provider interface {
	// Tokens returns the stored tokens if present and not near expiry.
	// Near expiry it refreshes them when a refresh token exists; without
	// one, the authorization-code provider returns nil while the
	// client-credentials and private-key-JWT providers run a fresh token
	// exchange. It returns nil when nothing is stored or no discovery
	// entry is cached.
	Tokens(ctx context.Context) (*oauth.TokenSet, error)

	// HandleUnauthorized runs the provider's full flow to obtain a fresh
	// token set after a 401/403 challenge.
	HandleUnauthorized(ctx context.Context, uctx UnauthorizedContext) (*oauth.TokenSet, error)
}

// UnauthorizedContext carries the parsed challenge information a 401/403
// response supplies (spec §4.7, §4.8).
type UnauthorizedContext struct {
	Challenge           primitives.Challenge
	ResourceMetadataURL string
	Scope               string
}

// isNearExpiry reports whether tokens should be proactively refreshed:
// IssuedAt + expires_in is within nearExpiryWindow of now, or has
// already passed. A TokenSet with ExpiresIn == 0 never expires (the AS
// did not advertise a lifetime) and is never near-expiry.
func isNearExpiry(tokens *oauth.TokenSet, now time.Time) bool {
	if tokens.ExpiresIn <= 0 {
		return false
	}
	expiresAt := tokens.IssuedAt.Add(time.Duration(tokens.ExpiresIn) * time.Second)
	return !now.Add(nearExpiryWindow).Before(expiresAt)
}
