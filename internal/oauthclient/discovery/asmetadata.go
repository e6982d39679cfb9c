package discovery

import (
	"context"
	"fmt"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// ASMetadataURLs builds the ordered candidate list of spec §4.6. With a
// non-root path p on the authorization server URL: oauth-authorization-
// server+p, then openid-configuration+p, then p/openid-configuration
// (trailing slash in p stripped). Without a path: oauth-authorization-
// server, then openid-configuration, at the root.
func ASMetadataURLs(authServerURL string) ([]string, error) {
	origin, err := originOf(authServerURL)
	if err != nil {
		return nil, err
	}
	path, err := pathOf(authServerURL)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return []string{
			origin + "/.well-known/oauth-authorization-server",
			origin + "/.well-known/openid-configuration",
		}, nil
	}

	trimmedPath := trimTrailingSlash(path)
	return []string{
		origin + "/.well-known/oauth-authorization-server" + path,
		origin + "/.well-known/openid-configuration" + path,
		origin + trimmedPath + "/.well-known/openid-configuration",
	}, nil
}

// FetchAuthorizationServerMetadata walks ASMetadataURLs in order,
// validates the issuer (RFC 8414 §3, trailing slashes normalized) and
// the authorization/token/registration endpoint safety (§4.5), and
// returns the first document that passes every check.
func FetchAuthorizationServerMetadata(ctx context.Context, client HTTPDoer, protocolVersion, authServerURL string) (*oauth.AuthorizationServerMetadata, error) {
	urls, err := ASMetadataURLs(authServerURL)
	if err != nil {
		return nil, err
	}

	for _, u := range urls {
		var md oauth.AuthorizationServerMetadata
		outcome, fetchErr := fetchJSON(ctx, client, protocolVersion, u, &md)
		switch outcome {
		case outcomeStop:
			return nil, fetchErr
		case outcomeContinue:
			continue
		case outcomeSuccess:
			if err := validateIssuer(md.Issuer, authServerURL); err != nil {
				return nil, clienterr.NewInvalidMetadataError("FetchAuthorizationServerMetadata", u, err)
			}
			if err := validateASEndpoints(&md); err != nil {
				return nil, clienterr.NewUnsafeEndpointError("FetchAuthorizationServerMetadata", u, err)
			}
			return &md, nil
		}
	}

	return nil, clienterr.NewDiscoveryFailedError("FetchAuthorizationServerMetadata", authServerURL,
		errExhausted("authorization server metadata"))
}

// validateIssuer implements RFC 8414 §3: the issuer in the returned
// metadata must equal the URL used to discover it, trailing slashes
// normalized on both sides.
func validateIssuer(issuer, authServerURL string) error {
	if trimTrailingSlash(issuer) != trimTrailingSlash(authServerURL) {
		return fmt.Errorf("issuer mismatch: metadata issuer %q does not match discovery url %q", issuer, authServerURL)
	}
	return nil
}

// validateASEndpoints applies §4.5 endpoint safety to every endpoint the
// authorization server metadata advertises.
func validateASEndpoints(md *oauth.AuthorizationServerMetadata) error {
	if err := primitives.ValidateEndpointSafety(md.AuthorizationEndpoint); err != nil {
		return fmt.Errorf("authorization_endpoint: %w", err)
	}
	if err := primitives.ValidateEndpointSafety(md.TokenEndpoint); err != nil {
		return fmt.Errorf("token_endpoint: %w", err)
	}
	if md.RegistrationEndpoint != "" {
		if err := primitives.ValidateEndpointSafety(md.RegistrationEndpoint); err != nil {
			return fmt.Errorf("registration_endpoint: %w", err)
		}
	}
	return nil
}
