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

// ClientCredentialsConfig configures a ClientCredentialsProvider.
type ClientCredentialsConfig struct {
	ServerURL            string
	ClientID             string
	ClientSecret         string
	ClientAuthPreference string
	Scope                string

	Storage         storage.TokenStorage
	DiscoveryCache  *discovery.Cache
	HTTPClient      HTTPDoer
	ProtocolVersion string
}

// ClientCredentialsProvider implements Provider for the client
// credentials grant (spec §4.7.2): no user interaction, no PKCE, no
// refresh-token issuance expected but handled if present.
type ClientCredentialsProvider struct {
	cfg      ClientCredentialsConfig
	recovery invalidClientRecovery
}

// NewClientCredentialsProvider constructs a provider from cfg.
func NewClientCredentialsProvider(cfg ClientCredentialsConfig) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{cfg: cfg}
}

// Tokens returns stored tokens, proactively refreshing or re-acquiring
// when near expiry (spec §4.7.2: no refresh token means a fresh
// client_credentials exchange, not an error).
func (p *ClientCredentialsProvider) Tokens(ctx context.Context) (*oauth.TokenSet, error) {
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

	if stored.RefreshToken != "" {
		creds := p.creds(entry.ASMetadata)
		refreshed, err := refreshTokens(ctx, p.cfg.HTTPClient, entry.ASMetadata.TokenEndpoint, p.resource(entry), stored, creds, nil, "")
		if err != nil {
			return nil, err
		}
		if err := p.cfg.Storage.SetTokens(ctx, p.cfg.ServerURL, refreshed); err != nil {
			return nil, err
		}
		return refreshed, nil
	}

	tokens, err := p.exchange(ctx, entry.ASMetadata, p.resource(entry), "")
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (p *ClientCredentialsProvider) resource(entry *discovery.Entry) string {
	if entry.PRM != nil && entry.PRM.Resource != "" {
		return entry.PRM.Resource
	}
	return p.cfg.ServerURL
}

func (p *ClientCredentialsProvider) creds(asMetadata *oauth.AuthorizationServerMetadata) clientCredentials {
	return clientCredentials{
		method:       SelectClientAuthMethod(asMetadata.TokenEndpointAuthMethodsSupported, p.cfg.ClientAuthPreference, p.cfg.ClientSecret != ""),
		clientID:     p.cfg.ClientID,
		clientSecret: p.cfg.ClientSecret,
	}
}

// HandleUnauthorized discovers PRM/AS metadata (spec §4.7.2: PRM is
// required — a missing protected-resource document is a
// discovery_failed error, there being no redirect flow to fall back
// on) and exchanges client credentials for a token.
func (p *ClientCredentialsProvider) HandleUnauthorized(ctx context.Context, uctx UnauthorizedContext) (*oauth.TokenSet, error) {
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

func (p *ClientCredentialsProvider) exchange(ctx context.Context, asMetadata *oauth.AuthorizationServerMetadata, resource, scope string) (*oauth.TokenSet, error) {
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

	tokens, err := postTokenRequest(ctx, p.cfg.HTTPClient, asMetadata.TokenEndpoint, form, p.creds(asMetadata))
	if err != nil {
		return nil, err
	}
	tokens.IssuedAt = time.Now()
	if err := p.cfg.Storage.SetTokens(ctx, p.cfg.ServerURL, tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
