package providers

import (
	"net/url"
	"strings"
	"testing"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

func TestSelectClientAuthMethodPreferenceSupported(t *testing.T) {
	t.Parallel()
	got := SelectClientAuthMethod([]string{oauth.AuthMethodClientSecretPost, oauth.AuthMethodClientSecretBasic}, oauth.AuthMethodClientSecretPost, true)
	if got != oauth.AuthMethodClientSecretPost {
		t.Fatalf("got %q, want client_secret_post", got)
	}
}

func TestSelectClientAuthMethodPreferenceUnsupportedFallsBackToOrder(t *testing.T) {
	t.Parallel()
	got := SelectClientAuthMethod([]string{oauth.AuthMethodClientSecretPost}, oauth.AuthMethodPrivateKeyJWT, true)
	if got != oauth.AuthMethodClientSecretPost {
		t.Fatalf("got %q, want client_secret_post (first confidential fallback the server supports)", got)
	}
}

func TestSelectClientAuthMethodPublicClientPrefersNone(t *testing.T) {
	t.Parallel()
	got := SelectClientAuthMethod([]string{oauth.AuthMethodNone, oauth.AuthMethodClientSecretPost}, "", false)
	if got != oauth.AuthMethodNone {
		t.Fatalf("got %q, want none", got)
	}
}

func TestSelectClientAuthMethodEmptyServerListUsesDefault(t *testing.T) {
	t.Parallel()
	got := SelectClientAuthMethod(nil, "", true)
	if got != oauth.AuthMethodClientSecretBasic {
		t.Fatalf("got %q, want client_secret_basic (RFC 8414 default)", got)
	}
}

func TestSelectClientAuthMethodNoSupportedFallsBackToNone(t *testing.T) {
	t.Parallel()
	got := SelectClientAuthMethod([]string{oauth.AuthMethodPrivateKeyJWT}, "", true)
	if got != oauth.AuthMethodNone {
		t.Fatalf("got %q, want none", got)
	}
}

func TestApplyClientAuthBasicReturnsHeaderNoBodyCredentials(t *testing.T) {
	t.Parallel()
	form := url.Values{}
	header := ApplyClientAuth(form, oauth.AuthMethodClientSecretBasic, "client one", "s3cr3t")
	if !strings.HasPrefix(header, "Basic ") {
		t.Fatalf("header = %q, want Basic prefix", header)
	}
	if form.Get("client_id") != "" || form.Get("client_secret") != "" {
		t.Fatalf("form = %v, want no credentials in body for basic auth", form)
	}
}

func TestApplyClientAuthPostSetsBodyNoHeader(t *testing.T) {
	t.Parallel()
	form := url.Values{}
	header := ApplyClientAuth(form, oauth.AuthMethodClientSecretPost, "client-id", "secret")
	if header != "" {
		t.Fatalf("header = %q, want empty for post auth", header)
	}
	if form.Get("client_id") != "client-id" || form.Get("client_secret") != "secret" {
		t.Fatalf("form = %v, want client_id/client_secret set", form)
	}
}

func TestApplyClientAuthNoneSetsClientIDOnly(t *testing.T) {
	t.Parallel()
	form := url.Values{}
	header := ApplyClientAuth(form, oauth.AuthMethodNone, "client-id", "")
	if header != "" {
		t.Fatalf("header = %q, want empty", header)
	}
	if form.Get("client_id") != "client-id" {
		t.Fatalf("form = %v, want client_id set", form)
	}
	if form.Get("client_secret") != "" {
		t.Fatalf("form = %v, want no client_secret for none auth", form)
	}
}
