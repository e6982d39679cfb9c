package storage

import (
	"context"
	"testing"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

func TestMemoryStorageTokensRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()
	ctx := context.Background()

	got, err := s.GetTokens(ctx, "https://example.com")
	if err != nil || got != nil {
		t.Fatalf("GetTokens on empty store = %v, %v", got, err)
	}

	want := &oauth.TokenSet{AccessToken: "abc", TokenType: "Bearer"}
	if err := s.SetTokens(ctx, "https://example.com", want); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	got, err = s.GetTokens(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("GetTokens: %v", err)
	}
	if got.AccessToken != "abc" {
		t.Fatalf("AccessToken = %q, want abc", got.AccessToken)
	}

	if err := s.RemoveTokens(ctx, "https://example.com"); err != nil {
		t.Fatalf("RemoveTokens: %v", err)
	}
	got, err = s.GetTokens(ctx, "https://example.com")
	if err != nil || got != nil {
		t.Fatalf("GetTokens after remove = %v, %v", got, err)
	}
}

func TestMemoryStorageReturnsCopiesNotAliases(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()
	ctx := context.Background()

	orig := &oauth.TokenSet{AccessToken: "abc"}
	_ = s.SetTokens(ctx, "r", orig)
	orig.AccessToken = "mutated-after-store"

	got, _ := s.GetTokens(ctx, "r")
	if got.AccessToken != "abc" {
		t.Fatalf("stored token was aliased to caller's struct: got %q", got.AccessToken)
	}

	got.AccessToken = "mutated-after-get"
	got2, _ := s.GetTokens(ctx, "r")
	if got2.AccessToken != "abc" {
		t.Fatalf("returned token was aliased to internal storage: got %q", got2.AccessToken)
	}
}

func TestMemoryStorageClientInformationRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()
	ctx := context.Background()

	want := &oauth.ClientInformation{ClientID: "client-1", ClientSecret: "shh"}
	if err := s.SetClientInformation(ctx, "https://example.com", want); err != nil {
		t.Fatalf("SetClientInformation: %v", err)
	}

	got, err := s.GetClientInformation(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("GetClientInformation: %v", err)
	}
	if got.ClientID != "client-1" || got.ClientSecret != "shh" {
		t.Fatalf("got %+v", got)
	}

	if err := s.RemoveClientInformation(ctx, "https://example.com"); err != nil {
		t.Fatalf("RemoveClientInformation: %v", err)
	}
	got, err = s.GetClientInformation(ctx, "https://example.com")
	if err != nil || got != nil {
		t.Fatalf("GetClientInformation after remove = %v, %v", got, err)
	}
}

func TestMemoryStorageDistinctResourcesIsolated(t *testing.T) {
	t.Parallel()
	s := NewMemoryStorage()
	ctx := context.Background()

	_ = s.SetTokens(ctx, "https://a.example.com", &oauth.TokenSet{AccessToken: "a"})
	_ = s.SetTokens(ctx, "https://b.example.com", &oauth.TokenSet{AccessToken: "b"})

	a, _ := s.GetTokens(ctx, "https://a.example.com")
	b, _ := s.GetTokens(ctx, "https://b.example.com")
	if a.AccessToken != "a" || b.AccessToken != "b" {
		t.Fatalf("cross-resource contamination: a=%+v b=%+v", a, b)
	}
}
