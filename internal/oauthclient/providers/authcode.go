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

// RedirectHandler presents authorizationURL to the resource owner (spec
// §6): opening a browser, rendering a link, whatever the embedding
// application needs. It returns once the redirect has been initiated,
// not once the user has completed it.
type RedirectHandler func(ctx context.Context, authorizationURL string) error

// CallbackHandler waits for the authorization callback and returns the
// code and state query parameters it carried (spec §6).
type CallbackHandler func(ctx context.Context) (code, state string, err error)

// AuthorizationCodeConfig configures an AuthorizationCodeProvider.
type AuthorizationCodeConfig struct {
	// ServerURL is the canonical MCP server URL this provider obtains
	// tokens for.
	ServerURL string

	// RedirectURI is the client's registered/advertised redirect_uri.
	RedirectURI string

	// ClientIDMetadataURL, if set, is tried as a CIMD client_id before
	// falling back to stored client info or DCR (spec §4.7.1 step 3).
	ClientIDMetadataURL string

	// ClientAuthPreference is the client's stated auth-method preference
	// for SelectClientAuthMethod; empty defers entirely to the server.
	ClientAuthPreference string

	// Scope is the lowest-priority scope source: context scope, then
	// PRM.scopes_supported, then AS.scopes_supported, then this value.
	Scope string

	// ClientName is sent as client_name during DCR.
	ClientName string

	Storage         storage.TokenStorage
	DiscoveryCache  *discovery.Cache
	HTTPClient      HTTPDoer
	ProtocolVersion string

	Redirect RedirectHandler
	Callback CallbackHandler
}

// AuthorizationCodeProvider implements Provider for the authorization
// code + PKCE grant (spec §4.7.1).
type AuthorizationCodeProvider struct {
	cfg      AuthorizationCodeConfig
	recovery invalidClientRecovery
}

// NewAuthorizationCodeProvider constructs a provider from cfg.
func NewAuthorizationCodeProvider(cfg AuthorizationCodeConfig) *AuthorizationCodeProvider {
	return &AuthorizationCodeProvider{cfg: cfg}
}

// Tokens returns stored tokens, proactively refreshing them when near
// expiry and a refresh token is available (spec §4.7.1).
func (p *AuthorizationCodeProvider) Tokens(ctx context.Context) (*oauth.TokenSet, error) {
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
	if stored.RefreshToken == "" {
		return nil, nil
	}

	entry := p.cfg.DiscoveryCache.Get(p.cfg.ServerURL)
	if entry == nil || entry.ASMetadata == nil || entry.Client == nil {
		return nil, nil
	}

	creds := clientCredentials{
		method:       SelectClientAuthMethod(entry.ASMetadata.TokenEndpointAuthMethodsSupported, p.cfg.ClientAuthPreference, entry.Client.ClientSecret != ""),
		clientID:     entry.Client.ClientID,
		clientSecret: entry.Client.ClientSecret,
	}
	refreshed, err := refreshTokens(ctx, p.cfg.HTTPClient, entry.ASMetadata.TokenEndpoint, p.resource(entry), stored, creds, nil, "")
	if err != nil {
		return nil, err
	}
	if err := p.cfg.Storage.SetTokens(ctx, p.cfg.ServerURL, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

func (p *AuthorizationCodeProvider) resource(entry *discovery.Entry) string {
	if entry.PRM != nil && entry.PRM.Resource != "" {
		return entry.PRM.Resource
	}
	return p.cfg.ServerURL
}

// HandleUnauthorized runs the full authorization-code + PKCE flow of
// spec §4.7.1 after a 401/403 challenge, returning a freshly obtained
// token set.
func (p *AuthorizationCodeProvider) HandleUnauthorized(ctx context.Context, uctx UnauthorizedContext) (*oauth.TokenSet, error) {
	// Step 1: PRM discovery; abort before any redirect on a resource
	// mismatch or a PRM with no authorization servers.
	prm, err := discovery.FetchProtectedResourceMetadata(ctx, p.cfg.HTTPClient, p.cfg.ProtocolVersion, p.cfg.ServerURL, uctx.ResourceMetadataURL)
	if err != nil {
		return nil, err
	}
	if len(prm.AuthorizationServers) == 0 {
		return nil, clienterr.NewDiscoveryFailedError("HandleUnauthorized", p.cfg.ServerURL, errNoAuthorizationServers)
	}
	if err := discovery.RequireResourceParent(prm.Resource, p.cfg.ServerURL); err != nil {
		return nil, err
	}

	// Step 2: authorization server metadata + PKCE capability check.
	asMetadata, err := discovery.FetchAuthorizationServerMetadata(ctx, p.cfg.HTTPClient, p.cfg.ProtocolVersion, prm.AuthorizationServers[0])
	if err != nil {
		return nil, err
	}
	if !primitives.S256Supported(asMetadata.CodeChallengeMethodsSupported) {
		return nil, clienterr.NewInvalidMetadataError("HandleUnauthorized", prm.AuthorizationServers[0], errNoS256Support)
	}

	resource, err := primitives.SelectResource(prm.Resource, p.cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	// Step 3: choose or obtain client credentials.
	client, err := p.resolveClient(ctx, asMetadata)
	if err != nil {
		return nil, err
	}
	p.cfg.DiscoveryCache.Set(p.cfg.ServerURL, &discovery.Entry{PRM: prm, ASMetadata: asMetadata, Client: client})

	tokens, err := p.authorize(ctx, prm, asMetadata, resource, client, uctx.Scope)
	if err == nil {
		return tokens, nil
	}
	if !clienterr.IsInvalidClient(err) {
		return nil, err
	}

	// Step 7: single-shot invalid_client recovery, serialized per
	// resource so concurrent callers share one re-registration attempt.
	return p.recovery.Do(p.cfg.ServerURL, func() (*oauth.TokenSet, error) {
		if err := p.cfg.Storage.RemoveClientInformation(ctx, p.cfg.ServerURL); err != nil {
			return nil, err
		}
		reregistered, err := p.registerDCR(ctx, asMetadata)
		if err != nil {
			return nil, err
		}
		if err := p.cfg.Storage.SetClientInformation(ctx, p.cfg.ServerURL, reregistered); err != nil {
			return nil, err
		}
		p.cfg.DiscoveryCache.InvalidateClient(p.cfg.ServerURL)
		p.cfg.DiscoveryCache.Set(p.cfg.ServerURL, &discovery.Entry{PRM: prm, ASMetadata: asMetadata, Client: reregistered})
		return p.authorize(ctx, prm, asMetadata, resource, reregistered, uctx.Scope)
	})
}

var (
	errNoAuthorizationServers = &flowError{"protected resource metadata advertises no authorization_servers"}
	errNoS256Support          = &flowError{"authorization server does not advertise S256 PKCE support"}
)

type flowError struct{ msg string }

func (e *flowError) Error() string { return e.msg }

// resolveClient implements spec §4.7.1 step 3: CIMD first, then storage,
// then DCR.
func (p *AuthorizationCodeProvider) resolveClient(ctx context.Context, asMetadata *oauth.AuthorizationServerMetadata) (*oauth.ClientInformation, error) {
	if p.cfg.ClientIDMetadataURL != "" && asMetadata.ClientIDMetadataDocumentSupported {
		if err := validateCIMDURL(p.cfg.ClientIDMetadataURL); err == nil {
			info := &oauth.ClientInformation{ClientID: p.cfg.ClientIDMetadataURL}
			if err := p.cfg.Storage.SetClientInformation(ctx, p.cfg.ServerURL, info); err != nil {
				return nil, err
			}
			return info, nil
		}
	}

	if stored, err := p.cfg.Storage.GetClientInformation(ctx, p.cfg.ServerURL); err == nil && stored != nil {
		return stored, nil
	}

	info, err := p.registerDCR(ctx, asMetadata)
	if err != nil {
		return nil, err
	}
	if err := p.cfg.Storage.SetClientInformation(ctx, p.cfg.ServerURL, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (p *AuthorizationCodeProvider) registerDCR(ctx context.Context, asMetadata *oauth.AuthorizationServerMetadata) (*oauth.ClientInformation, error) {
	if asMetadata.RegistrationEndpoint == "" {
		return nil, clienterr.NewDiscoveryFailedError("registerDCR", asMetadata.Issuer, errNoRegistrationEndpoint)
	}
	metadata := ClientMetadata{
		RedirectURIs:  []string{p.cfg.RedirectURI},
		GrantTypes:    []string{oauth.GrantTypeAuthorizationCode, oauth.GrantTypeRefreshToken},
		ResponseTypes: []string{oauth.ResponseTypeCode},
		ClientName:    p.cfg.ClientName,
		Scope:         p.cfg.Scope,
	}
	return registerClient(ctx, p.cfg.HTTPClient, asMetadata.RegistrationEndpoint, metadata)
}

var errNoRegistrationEndpoint = &noRegistrationEndpointError{}

type noRegistrationEndpointError struct{}

func (e *noRegistrationEndpointError) Error() string { return "authorization server has no registration_endpoint" }

// authorize runs steps 4-6: build the authorization URL, run the
// redirect/callback round trip, verify state, and exchange the code.
func (p *AuthorizationCodeProvider) authorize(ctx context.Context, prm *oauth.ProtectedResourceMetadata, asMetadata *oauth.AuthorizationServerMetadata, resource string, client *oauth.ClientInformation, contextScope string) (*oauth.TokenSet, error) {
	verifier, err := primitives.NewCodeVerifier()
	if err != nil {
		return nil, err
	}
	state, err := primitives.NewState()
	if err != nil {
		return nil, err
	}

	authorizationURL, err := p.buildAuthorizationURL(asMetadata, prm, resource, client, verifier, state, contextScope)
	if err != nil {
		return nil, err
	}

	if err := p.cfg.Redirect(ctx, authorizationURL); err != nil {
		return nil, err
	}
	code, returnedState, err := p.cfg.Callback(ctx)
	if err != nil {
		return nil, err
	}
	if !primitives.StateEqual(state, returnedState) {
		return nil, clienterr.NewStateMismatchError("authorize")
	}

	form := url.Values{}
	form.Set("grant_type", oauth.GrantTypeAuthorizationCode)
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.RedirectURI)
	form.Set("code_verifier", verifier)
	if resource != "" {
		form.Set("resource", resource)
	}

	creds := clientCredentials{
		method:       SelectClientAuthMethod(asMetadata.TokenEndpointAuthMethodsSupported, p.cfg.ClientAuthPreference, client.ClientSecret != ""),
		clientID:     client.ClientID,
		clientSecret: client.ClientSecret,
	}
	tokens, err := postTokenRequest(ctx, p.cfg.HTTPClient, asMetadata.TokenEndpoint, form, creds)
	if err != nil {
		return nil, err
	}
	tokens.IssuedAt = time.Now()

	if err := p.cfg.Storage.SetTokens(ctx, p.cfg.ServerURL, tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// buildAuthorizationURL implements spec §4.7.1 step 4: response_type,
// code_challenge(+method), state, redirect_uri, client_id, resource, and
// scope selected by priority (context scope, then PRM, then AS, then
// configured scope).
func (p *AuthorizationCodeProvider) buildAuthorizationURL(asMetadata *oauth.AuthorizationServerMetadata, prm *oauth.ProtectedResourceMetadata, resource string, client *oauth.ClientInformation, verifier, state, contextScope string) (string, error) {
	u, err := url.Parse(asMetadata.AuthorizationEndpoint)
	if err != nil {
		return "", clienterr.NewInvalidMetadataError("buildAuthorizationURL", asMetadata.AuthorizationEndpoint, err)
	}

	q := u.Query()
	q.Set("response_type", oauth.ResponseTypeCode)
	q.Set("client_id", client.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("code_challenge", primitives.CodeChallengeS256(verifier))
	q.Set("code_challenge_method", primitives.CodeChallengeMethod)
	q.Set("state", state)
	if resource != "" {
		q.Set("resource", resource)
	}
	if scope := p.selectScope(prm, asMetadata, contextScope); scope != "" {
		q.Set("scope", scope)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// selectScope implements spec §4.7.1 step 4's priority order: the
// per-request context scope wins, then PRM.scopes_supported, then
// AS.scopes_supported, then the provider's configured fallback scope.
func (p *AuthorizationCodeProvider) selectScope(prm *oauth.ProtectedResourceMetadata, asMetadata *oauth.AuthorizationServerMetadata, contextScope string) string {
	if contextScope != "" {
		return contextScope
	}
	if len(prm.ScopesSupported) > 0 {
		return joinScopes(prm.ScopesSupported)
	}
	if len(asMetadata.ScopesSupported) > 0 {
		return joinScopes(asMetadata.ScopesSupported)
	}
	return p.cfg.Scope
}

func joinScopes(scopes []string) string {
	out := ""
	for i, s := range scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
