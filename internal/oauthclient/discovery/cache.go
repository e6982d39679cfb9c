package discovery

import (
	"sync"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// Entry is the per-serverURL discovery state spec §3 describes: the
// resolved PRM, the resolved AS metadata, and resolved client
// information, keyed by server URL.
type Entry struct {
	PRM        *oauth.ProtectedResourceMetadata
	ASMetadata *oauth.AuthorizationServerMetadata
	Client     *oauth.ClientInformation
}

// Cache is a per-provider, per-serverURL discovery cache, mirroring the
// JWKS client's per-issuer URI cache. Clear empties it wholesale on
// explicit teardown; invalid_client recovery clears only the entry's
// client information (InvalidateClient).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewCache returns an empty discovery cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Get returns the cached entry for serverURL, or nil if absent.
func (c *Cache) Get(serverURL string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[serverURL]
}

// Set stores the entry for serverURL, replacing any previous value.
func (c *Cache) Set(serverURL string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[serverURL] = entry
}

// InvalidateClient clears only the client-registration portion of the
// cached entry for serverURL, preserving PRM/AS metadata — used by the
// invalid_client recovery path (spec §4.7.1 step 7), which must
// re-register without re-running discovery.
func (c *Cache) InvalidateClient(serverURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[serverURL]; ok {
		e.Client = nil
	}
}

// Clear removes every cached entry (explicit teardown).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}
