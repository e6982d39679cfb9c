package discovery

import (
	"context"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/primitives"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// Result bundles everything a provider needs after a successful
// discovery round: the PRM, the chosen authorization server's metadata,
// and the resource identifier to present in token requests.
type Result struct {
	PRM        *oauth.ProtectedResourceMetadata
	ASMetadata *oauth.AuthorizationServerMetadata
	Resource   string
}

// Discover runs the full chain of spec §4.6/§4.7.1 steps 1-2: fetch PRM,
// select the first authorization server, fetch and validate its
// metadata, and select the resource identifier via hierarchical
// matching (§4.5). Callers needing the resource_mismatch check of
// §4.7.1 step 1 should call RequireResourceParent afterward.
func Discover(ctx context.Context, client HTTPDoer, protocolVersion, serverURL, resourceMetadataHint string) (*Result, error) {
	prm, err := FetchProtectedResourceMetadata(ctx, client, protocolVersion, serverURL, resourceMetadataHint)
	if err != nil {
		return nil, err
	}

	asURL, err := firstAuthorizationServer(prm)
	if err != nil {
		return nil, err
	}

	asMetadata, err := FetchAuthorizationServerMetadata(ctx, client, protocolVersion, asURL)
	if err != nil {
		return nil, err
	}

	resource, err := primitives.SelectResource(prm.Resource, serverURL)
	if err != nil {
		return nil, err
	}

	return &Result{PRM: prm, ASMetadata: asMetadata, Resource: resource}, nil
}

// RequireResourceParent enforces spec §4.7.1 step 1: abort before any
// redirect if PRM.resource is not a hierarchical parent of the
// canonical server URL.
func RequireResourceParent(prmResource, canonicalServerURL string) error {
	matches, err := primitives.ResourceURLMatches(canonicalServerURL, prmResource)
	if err != nil {
		return err
	}
	if !matches {
		return clienterr.NewInvalidMetadataError("RequireResourceParent", prmResource,
			resourceMismatchError{expected: prmResource, actual: canonicalServerURL})
	}
	return nil
}

// resourceMismatchError names the expected/actual resource for a failed
// hierarchical match (spec §4.7.1: "fail resource_mismatch{expected,
// actual}").
type resourceMismatchError struct {
	expected, actual string
}

func (e resourceMismatchError) Error() string {
	return "discovery: resource_mismatch: expected " + e.expected + ", got " + e.actual
}
