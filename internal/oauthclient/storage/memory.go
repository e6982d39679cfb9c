package storage

import (
	"context"
	"sync"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// MemoryStorage is an in-memory reference TokenStorage implementation,
// keyed by resource URL. It is safe for concurrent use, grounded on the
// same RWMutex-guarded-map idiom as the JWKS client's issuer cache.
type MemoryStorage struct {
	mu      sync.RWMutex
	tokens  map[string]*oauth.TokenSet
	clients map[string]*oauth.ClientInformation
}

// NewMemoryStorage returns an empty in-memory TokenStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tokens:  make(map[string]*oauth.TokenSet),
		clients: make(map[string]*oauth.ClientInformation),
	}
}

func (m *MemoryStorage) GetTokens(_ context.Context, resource string) (*oauth.TokenSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[resource]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStorage) SetTokens(_ context.Context, resource string, tokens *oauth.TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tokens
	m.tokens[resource] = &cp
	return nil
}

func (m *MemoryStorage) RemoveTokens(_ context.Context, resource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, resource)
	return nil
}

func (m *MemoryStorage) GetClientInformation(_ context.Context, resource string) (*oauth.ClientInformation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[resource]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStorage) SetClientInformation(_ context.Context, resource string, info *oauth.ClientInformation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *info
	m.clients[resource] = &cp
	return nil
}

func (m *MemoryStorage) RemoveClientInformation(_ context.Context, resource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, resource)
	return nil
}
