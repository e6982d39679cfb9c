package providers

import (
	"context"
	"net/url"
	"testing"

	"github.com/jamesprial/mcp-oauth-2.1/internal/oauthclient/clienterr"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

func TestPostTokenRequestSuccess(t *testing.T) {
	t.Parallel()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"https://as.example.com/token": {status: 200, body: `{"access_token":"abc","token_type":"Bearer","expires_in":3600}`},
	}}
	form := url.Values{}
	form.Set("grant_type", oauth.GrantTypeClientCredentials)
	tokens, err := postTokenRequest(context.Background(), doer, "https://as.example.com/token", form, clientCredentials{method: oauth.AuthMethodNone, clientID: "client"})
	if err != nil {
		t.Fatalf("postTokenRequest: %v", err)
	}
	if tokens.AccessToken != "abc" || tokens.ExpiresIn != 3600 {
		t.Fatalf("tokens = %+v", tokens)
	}
}

func TestPostTokenRequestInvalidClientIsDetectable(t *testing.T) {
	t.Parallel()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"https://as.example.com/token": {status: 401, body: `{"error":"invalid_client","error_description":"unknown client"}`},
	}}
	_, err := postTokenRequest(context.Background(), doer, "https://as.example.com/token", url.Values{}, clientCredentials{method: oauth.AuthMethodNone, clientID: "client"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !clienterr.IsInvalidClient(err) {
		t.Fatalf("IsInvalidClient(%v) = false, want true", err)
	}
}

func TestPostTokenRequestInvalidGrantIsNotInvalidClient(t *testing.T) {
	t.Parallel()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"https://as.example.com/token": {status: 400, body: `{"error":"invalid_grant","error_description":"expired code"}`},
	}}
	_, err := postTokenRequest(context.Background(), doer, "https://as.example.com/token", url.Values{}, clientCredentials{method: oauth.AuthMethodNone, clientID: "client"})
	if err == nil {
		t.Fatal("expected error")
	}
	if clienterr.IsInvalidClient(err) {
		t.Fatal("invalid_grant misclassified as invalid_client")
	}
}

func TestPostTokenRequestBasicAuthSetsHeaderNotBody(t *testing.T) {
	t.Parallel()
	var gotAuth string
	doer := &fakeDoerWithHeaderCapture{
		fakeDoer: fakeDoer{responses: map[string]fakeResponse{
			"https://as.example.com/token": {status: 200, body: `{"access_token":"abc","token_type":"bearer"}`},
		}},
		captured: &gotAuth,
	}
	_, err := postTokenRequest(context.Background(), doer, "https://as.example.com/token", url.Values{}, clientCredentials{method: oauth.AuthMethodClientSecretBasic, clientID: "id", clientSecret: "secret"})
	if err != nil {
		t.Fatalf("postTokenRequest: %v", err)
	}
	if gotAuth == "" {
		t.Fatal("expected Authorization header to be set for basic auth")
	}
}
