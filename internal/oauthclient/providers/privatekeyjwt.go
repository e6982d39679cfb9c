package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/discovery"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/storage"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// AssertionProvider mints a signed client_assertion JWT for the given
// audience (spec §6): the token endpoint's issuer when AS metadata is
// available, else the token endpoint URL itself. Signing key material
// lives entirely with the caller's implementation; this package never
// touches private keys.
type AssertionProvider interface {
	Assertion(ctx context.Context, audience string) (string, error)
}

// PrivateKeyJWTConfig configures a PrivateKeyJWTProvider.
type PrivateKeyJWTConfig struct {
	ServerURL string
	ClientID  string
	Scope     string
	Assertion AssertionProvider

	Storage         storage.TokenStorage
	DiscoveryCache  *discovery.Cache
	HTTPClient      HTTPDoer
	ProtocolVersion string
}

// PrivateKeyJWTProvider implements Provider for the client-credentials
// grant authenticated with private_key_jwt (spec §4.7.3) instead of a
// shared secret: every token request, including refresh, carries a
// freshly minted client_assertion.
type PrivateKeyJWTProvider struct {
	cfg      PrivateKeyJWTConfig
	recovery invalidClientRecovery
}

// NewPrivateKeyJWTProvider constructs a provider from cfg.
func NewPrivateKeyJWTProvider(cfg PrivateKeyJWTConfig) *PrivateKeyJWTProvider {
	return &PrivateKeyJWTProvider{cfg: cfg}
}

func (p *PrivateKeyJWTProvider) assertionSource() assertionSource {
	return func(ctx context.Context, audience string) (string, error) {
		return p.cfg.Assertion.Assertion(ctx, audience)
	}
}

func (p *PrivateKeyJWTProvider) creds() clientCredentials {
	return clientCredentials{method: oauth.AuthMethodPrivateKeyJWT, clientID: p.cfg.ClientID}
}

// audienceFor implements spec §4.7.3's audience-selection rule: the AS
// issuer when metadata is known, else the bare token endpoint.
func audienceFor(asMetadata *oauth.AuthorizationServerMetadata) string {
	if asMetadata.Issuer != "" {
		return asMetadata.Issuer
	}
	return asMetadata.TokenEndpoint
}

// Tokens returns stored tokens, proactively refreshing with a fresh
// assertion when near expiry.
func (p *PrivateKeyJWTProvider) Tokens(ctx context.Context) (*oauth.TokenSet, error) {
	stored, err := p.cfg.Storage.GetTokens(ctx, p.cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	if !isNearExpiry(stored, time.Now()) {
		return stored, nil
	}

	entry := p.cfg.DiscoveryCache.Get(p.cfg.ServerURL)
	if entry == nil || entry.ASMetadata == nil {
		return nil, nil
	}
	resource := p.cfg.ServerURL
	if entry.PRM != nil && entry.PRM.Resource != "" {
		resource = entry.PRM.Resource
	}

	if stored.RefreshToken != "" {
		refreshed, err := refreshTokens(ctx, p.cfg.HTTPClient, entry.ASMetadata.TokenEndpoint, resource, stored, p.creds(), p.assertionSource(), audienceFor(entry.ASMetadata))
		if err != nil {
			return nil, err
		}
		if err := p.cfg.Storage.SetTokens(ctx, p.cfg.ServerURL, refreshed); err != nil {
			return nil, err
		}
		return refreshed, nil
	}

	return p.exchange(ctx, entry.ASMetadata, resource, "")
}

// HandleUnauthorized discovers PRM/AS metadata and exchanges client
// credentials authenticated via private_key_jwt.
func (p *PrivateKeyJWTProvider) HandleUnauthorized(ctx context.Context, uctx UnauthorizedContext) (*oauth.TokenSet, error) {
	prm, err := discovery.FetchProtectedResourceMetadata(ctx, p.cfg.HTTPClient, p.cfg.ProtocolVersion, p.cfg.ServerURL, uctx.ResourceMetadataURL)
	if err != nil {
		return nil, err
	}
	if len(prm.AuthorizationServers) == 0 {
		return nil, clienterr.NewDiscoveryFailedError("HandleUnauthorized", p.cfg.ServerURL, errNoAuthorizationServers)
	}

	asMetadata, err := discovery.FetchAuthorizationServerMetadata(ctx, p.cfg.HTTPClient, p.cfg.ProtocolVersion, prm.AuthorizationServers[0])
	if err != nil {
		return nil, err
	}
	resource, err := primitives.SelectResource(prm.Resource, p.cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	p.cfg.DiscoveryCache.Set(p.cfg.ServerURL, &discovery.Entry{PRM: prm, ASMetadata: asMetadata})

	tokens, err := p.exchange(ctx, asMetadata, resource, uctx.Scope)
	if err == nil {
		return tokens, nil
	}
	if !clienterr.IsInvalidClient(err) {
		return nil, err
	}

	return p.recovery.Do(p.cfg.ServerURL, func() (*oauth.TokenSet, error) {
		return p.exchange(ctx, asMetadata, resource, uctx.Scope)
	})
}

func (p *PrivateKeyJWTProvider) exchange(ctx context.Context, asMetadata *oauth.AuthorizationServerMetadata, resource, scope string) (*oauth.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", oauth.GrantTypeClientCredentials)
	if resource != "" {
		form.Set("resource", resource)
	}
	if scope == "" {
		scope = p.cfg.Scope
	}
	if scope != "" {
		form.Set("scope", scope)
	}
	if err := applyAssertionIfNeeded(ctx, form, p.assertionSource(), audienceFor(asMetadata)); err != nil {
		return nil, err
	}

	tokens, err := postTokenRequest(ctx, p.cfg.HTTPClient, asMetadata.TokenEndpoint, form, p.creds())
	if err != nil {
		return nil, err
	}
	tokens.IssuedAt = time.Now()
	if err := p.cfg.Storage.SetTokens(ctx, p.cfg.ServerURL, tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
