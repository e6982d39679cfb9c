package discovery

import (
	"context"
	"strings"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// PRMURLs builds the ordered candidate list of spec §4.6: a
// WWW-Authenticate-supplied resource_metadata URL first (if it passes
// endpoint safety), then the path-suffixed well-known URL, then the
// root well-known URL.
func PRMURLs(serverURL, resourceMetadataHint string) ([]string, error) {
	var urls []string

	if resourceMetadataHint != "" {
		if err := primitives.ValidateEndpointSafety(resourceMetadataHint); err == nil {
			urls = append(urls, resourceMetadataHint)
		}
	}

	origin, err := originOf(serverURL)
	if err != nil {
		return nil, err
	}
	path, err := pathOf(serverURL)
	if err != nil {
		return nil, err
	}
	if path != "" {
		urls = append(urls, origin+"/.well-known/oauth-protected-resource"+path)
	}
	urls = append(urls, origin+"/.well-known/oauth-protected-resource")

	return urls, nil
}

// FetchProtectedResourceMetadata walks PRMURLs in order per the §4.6
// fetch policy, returning the first metadata document that parses, or a
// discovery_failed error if the chain is exhausted or a 5xx/transport
// error stops it early.
func FetchProtectedResourceMetadata(ctx context.Context, client HTTPDoer, protocolVersion, serverURL, resourceMetadataHint string) (*oauth.ProtectedResourceMetadata, error) {
	urls, err := PRMURLs(serverURL, resourceMetadataHint)
	if err != nil {
		return nil, err
	}

	for _, u := range urls {
		var md oauth.ProtectedResourceMetadata
		outcome, err := fetchJSON(ctx, client, protocolVersion, u, &md)
		switch outcome {
		case outcomeSuccess:
			return &md, nil
		case outcomeStop:
			return nil, err
		case outcomeContinue:
			continue
		}
	}

	return nil, clienterr.NewDiscoveryFailedError("FetchProtectedResourceMetadata", serverURL,
		errExhausted("protected resource metadata"))
}

func errExhausted(what string) error {
	return &exhaustedError{what: what}
}

type exhaustedError struct{ what string }

func (e *exhaustedError) Error() string {
	return "discovery: exhausted all candidate urls for " + e.what
}

// firstAuthorizationServer returns prm.AuthorizationServers[0], or an
// error if the list is empty (spec §4.7.1 step 1).
func firstAuthorizationServer(prm *oauth.ProtectedResourceMetadata) (string, error) {
	if len(prm.AuthorizationServers) == 0 {
		return "", clienterr.NewDiscoveryFailedError("firstAuthorizationServer", prm.Resource,
			errExhausted("authorization_servers"))
	}
	return prm.AuthorizationServers[0], nil
}

// trimTrailingSlash normalizes a URL for the issuer comparison of §4.6.
func trimTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
