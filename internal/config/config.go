// Package config provides configuration management for the OAuth 2.1 MCP
// session engine. Configuration is loaded from environment variables via
// knadh/koanf, with sensible defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete server configuration in a flat structure.
type Config struct {
	// Server settings
	// Addr is the address to bind the HTTP server (e.g., ":8080").
	Addr string

	// BaseURL is the canonical base URL for this server (e.g., "https://example.com/mcp").
	// This is used for OAuth audience validation and resource metadata.
	BaseURL string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum duration to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration

	// MaxSessions bounds concurrent streamable-HTTP sessions the
	// transport admits before answering 503 (spec §4.2).
	MaxSessions int

	// OAuth settings
	// AuthorizationServers is a list of trusted authorization server URLs.
	// These servers are listed in the protected resource metadata.
	AuthorizationServers []string

	// Audience is the expected audience (aud) claim in access tokens.
	// This should match the server's canonical URI.
	Audience string

	// ScopesSupported is a list of OAuth scopes this server supports.
	ScopesSupported []string

	// JWKSCacheTTL is how long to cache JWKS keys from authorization servers.
	JWKSCacheTTL time.Duration

	// ClockSkew is the allowed clock skew for token expiration validation.
	ClockSkew time.Duration

	// MCP settings
	// SessionTTL is the duration before an MCP session expires.
	SessionTTL time.Duration

	// Client settings, consulted by the CLI's "connect" command: an
	// outbound MCP client attaching an OAuth client provider to a
	// streamable-HTTP transport.
	ClientServerURL    string
	ClientGrant        string // "authcode" or "client_credentials"
	ClientID           string
	ClientSecret       string
	ClientRedirectURI  string
	ClientProtoVersion string
}

const envPrefix = "MCP_"

// defaults seeds every key Load() looks up before the env provider
// overlays the process environment; koanf.Load merges providers in call
// order, so defaults must load first.
var defaults = map[string]interface{}{
	"server.read.timeout":  "30s",
	"server.write.timeout": "30s",
	"server.idle.timeout":  "120s",
	"server.addr":          ":8080",
	"server.max.sessions":  100,
	"oauth.jwks.cache.ttl": "1h",
	"oauth.clock.skew":     "1m",
	"mcp.session.ttl":      "1h",
	"client.grant":         "authcode",
	"client.proto.version": "2025-06-18",
}

// envKey rewrites MCP_SERVER_READ_TIMEOUT into the server.read.timeout
// dotted path Load looks up, matching the flat SCREAMING_SNAKE_CASE
// variables the teacher's deployment tooling already exports.
func envKey(s string) string {
	trimmed := strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(trimmed), "_", ".")
}

// Load reads configuration from environment variables via koanf and
// returns a validated Config.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}
	// ProviderWithValue (not Provider) so an explicitly-empty env var -
	// common in test harnesses and container env files - is skipped
	// rather than blanking out a default.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKey(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	readTimeout, err := time.ParseDuration(k.String("server.read.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_SERVER_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(k.String("server.write.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_SERVER_WRITE_TIMEOUT: %w", err)
	}
	idleTimeout, err := time.ParseDuration(k.String("server.idle.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_SERVER_IDLE_TIMEOUT: %w", err)
	}
	jwksCacheTTL, err := time.ParseDuration(k.String("oauth.jwks.cache.ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_OAUTH_JWKS_CACHE_TTL: %w", err)
	}
	clockSkew, err := time.ParseDuration(k.String("oauth.clock.skew"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_OAUTH_CLOCK_SKEW: %w", err)
	}
	sessionTTL, err := time.ParseDuration(k.String("mcp.session.ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_MCP_SESSION_TTL: %w", err)
	}

	cfg := &Config{
		Addr:         k.String("server.addr"),
		BaseURL:      k.String("server.base.url"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		MaxSessions:  k.Int("server.max.sessions"),

		AuthorizationServers: splitNonEmpty(k.String("oauth.authorization.servers")),
		Audience:             k.String("oauth.audience"),
		ScopesSupported:      splitNonEmpty(k.String("oauth.scopes.supported")),
		JWKSCacheTTL:         jwksCacheTTL,
		ClockSkew:            clockSkew,

		SessionTTL: sessionTTL,

		ClientServerURL:    k.String("client.server.url"),
		ClientGrant:        k.String("client.grant"),
		ClientID:           k.String("client.id"),
		ClientSecret:       k.String("client.secret"),
		ClientRedirectURI:  k.String("client.redirect.uri"),
		ClientProtoVersion: k.String("client.proto.version"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitNonEmpty splits a comma-separated value, trimming whitespace and
// dropping empty entries. Returns nil if value is empty.
func splitNonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// String returns a string representation of the configuration (for debugging).
// Sensitive values are redacted.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Addr: %s, BaseURL: %s, ReadTimeout: %v, WriteTimeout: %v, IdleTimeout: %v, MaxSessions: %d, AuthorizationServers: %v, Audience: %s, ScopesSupported: %v, JWKSCacheTTL: %v, ClockSkew: %v, SessionTTL: %v, ClientServerURL: %s, ClientGrant: %s}",
		c.Addr, c.BaseURL, c.ReadTimeout, c.WriteTimeout, c.IdleTimeout, c.MaxSessions,
		c.AuthorizationServers, c.Audience, c.ScopesSupported,
		c.JWKSCacheTTL, c.ClockSkew, c.SessionTTL, c.ClientServerURL, c.ClientGrant)
}
