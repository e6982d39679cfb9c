// Package storage defines the client-supplied persistence seam for OAuth
// client state (spec §6 TokenStorage) plus an in-memory reference
// implementation.
package storage

import (
	"context"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// TokenStorage is the pluggable persistence interface OAuth client
// providers read and write through. The core never persists tokens
// itself (spec §1 Non-goals); callers supply an implementation.
type TokenStorage interface {
	GetTokens(ctx context.Context, resource string) (*oauth.TokenSet, error)
	SetTokens(ctx context.Context, resource string, tokens *oauth.TokenSet) error
	RemoveTokens(ctx context.Context, resource string) error

	GetClientInformation(ctx context.Context, resource string) (*oauth.ClientInformation, error)
	SetClientInformation(ctx context.Context, resource string, info *oauth.ClientInformation) error
	RemoveClientInformation(ctx context.Context, resource string) error
}
