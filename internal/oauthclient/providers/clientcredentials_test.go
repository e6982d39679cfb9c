package providers

import (
	"context"
	"testing"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/discovery"
	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/storage"
)

const ccPRMURL = "https://mcp.example.com/.well-known/oauth-protected-resource"
const ccASMetadataURL = "https://as.example.com/.well-known/oauth-authorization-server"
const ccTokenURL = "https://as.example.com/token"

func ccFixtureResponses() map[string]fakeResponse {
	return map[string]fakeResponse{
		ccPRMURL: {status: 200, body: `{
			"resource": "https://mcp.example.com",
			"authorization_servers": ["https://as.example.com"]
		}`},
		ccASMetadataURL: {status: 200, body: `{
			"issuer": "https://as.example.com",
			"authorization_endpoint": "https://as.example.com/authorize",
			"token_endpoint": "` + ccTokenURL + `",
			"token_endpoint_auth_methods_supported": ["client_secret_basic"]
		}`},
		ccTokenURL: {status: 200, body: `{"access_token":"cc-access","token_type":"Bearer","expires_in":3600}`},
	}
}

func TestClientCredentialsProviderHandleUnauthorized(t *testing.T) {
	t.Parallel()
	doer := &fakeDoer{responses: ccFixtureResponses()}
	provider := NewClientCredentialsProvider(ClientCredentialsConfig{
		ServerURL:       "https://mcp.example.com",
		ClientID:        "cc-client",
		ClientSecret:    "cc-secret",
		Storage:         storage.NewMemoryStorage(),
		DiscoveryCache:  discovery.NewCache(),
		HTTPClient:      doer,
		ProtocolVersion: "2025-06-18",
	})

	tokens, err := provider.HandleUnauthorized(context.Background(), UnauthorizedContext{})
	if err != nil {
		t.Fatalf("HandleUnauthorized: %v", err)
	}
	if tokens.AccessToken != "cc-access" {
		t.Fatalf("AccessToken = %q", tokens.AccessToken)
	}
}

func TestClientCredentialsProviderMissingPRMFails(t *testing.T) {
	t.Parallel()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		ccPRMURL: {status: 404, body: ""},
	}}
	provider := NewClientCredentialsProvider(ClientCredentialsConfig{
		ServerURL:       "https://mcp.example.com",
		ClientID:        "cc-client",
		Storage:         storage.NewMemoryStorage(),
		DiscoveryCache:  discovery.NewCache(),
		HTTPClient:      doer,
		ProtocolVersion: "2025-06-18",
	})

	_, err := provider.HandleUnauthorized(context.Background(), UnauthorizedContext{})
	if err == nil {
		t.Fatal("expected discovery_failed error when PRM is unavailable")
	}
}

func TestClientCredentialsProviderTokensReturnsNilWithNoStoredTokens(t *testing.T) {
	t.Parallel()
	provider := NewClientCredentialsProvider(ClientCredentialsConfig{
		ServerURL:      "https://mcp.example.com",
		Storage:        storage.NewMemoryStorage(),
		DiscoveryCache: discovery.NewCache(),
	})
	tokens, err := provider.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if tokens != nil {
		t.Fatalf("tokens = %+v, want nil", tokens)
	}
}
