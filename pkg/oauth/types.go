// Package oauth provides shared OAuth 2.1 types and constants for the MCP server.
package oauth

import (
	"encoding/json"
	"strings"
	"time"
)

// OAuth 2.1 scope constants for MCP operations.
const (
	// ScopeRead allows reading MCP resources.
	ScopeRead = "mcp:read"

	// ScopeWrite allows modifying MCP resources.
	ScopeWrite = "mcp:write"

	// ScopeAdmin allows administrative operations on MCP resources.
	ScopeAdmin = "mcp:admin"
)

// Token type constants as defined in RFC 6750.
const (
	// BearerToken is the OAuth 2.1 Bearer token type.
	BearerToken = "Bearer"

	// TokenTypeBearer is an alias for BearerToken.
	TokenTypeBearer = "Bearer"
)

// Grant types as defined in OAuth 2.1.
const (
	// GrantTypeAuthorizationCode is the authorization code grant type.
	GrantTypeAuthorizationCode = "authorization_code"

	// GrantTypeRefreshToken is the refresh token grant type.
	GrantTypeRefreshToken = "refresh_token"

	// GrantTypeClientCredentials is the client credentials grant type.
	GrantTypeClientCredentials = "client_credentials"
)

// Response types as defined in OAuth 2.1.
const (
	// ResponseTypeCode is the authorization code response type.
	// OAuth 2.1 only supports the code response type (implicit grant is removed).
	ResponseTypeCode = "code"
)

// PKCE code challenge methods as defined in RFC 7636.
// OAuth 2.1 requires S256 only (plain method is prohibited).
const (
	// CodeChallengeMethodS256 is the SHA-256 code challenge method.
	// This is the only allowed method in OAuth 2.1.
	CodeChallengeMethodS256 = "S256"
)

// HTTP header names.
const (
	// HeaderAuthorization is the Authorization HTTP header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate HTTP header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderContentType is the Content-Type HTTP header name.
	HeaderContentType = "Content-Type"
)

// Content type constants.
const (
	// ContentTypeJSON is the application/json content type.
	ContentTypeJSON = "application/json"

	// ContentTypeFormURLEncoded is the application/x-www-form-urlencoded content type.
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)

// Client authentication methods, as advertised by
// token_endpoint_auth_methods_supported (RFC 8414 §2).
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodPrivateKeyJWT     = "private_key_jwt"
	AuthMethodNone              = "none"
)

// ClientAssertionTypeJWTBearer is the client_assertion_type value for
// private_key_jwt client authentication (RFC 7523).
const ClientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// TokenSet is the response of a successful token endpoint exchange.
// token_type is normalized case-insensitively to "Bearer"; UnmarshalJSON
// rejects any other token type.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	// IssuedAt is stamped by the receiving provider immediately after a
	// successful exchange/refresh; it is never present on the wire and is
	// always zero right after UnmarshalJSON.
	IssuedAt time.Time `json:"-"`
}

type wireTokenSet TokenSet

// UnmarshalJSON normalizes token_type to "Bearer" case-insensitively and
// rejects any other token type per RFC 6750 §4.
func (t *TokenSet) UnmarshalJSON(data []byte) error {
	var w wireTokenSet
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !strings.EqualFold(w.TokenType, BearerToken) {
		return &UnsupportedTokenTypeError{TokenType: w.TokenType}
	}
	w.TokenType = BearerToken
	*t = TokenSet(w)
	return nil
}

// UnsupportedTokenTypeError is returned when a token endpoint response
// carries a token_type other than "Bearer".
type UnsupportedTokenTypeError struct {
	TokenType string
}

func (e *UnsupportedTokenTypeError) Error() string {
	return "oauth: unsupported token_type " + e.TokenType
}

// ProtectedResourceMetadata is RFC 9728 Protected Resource Metadata, as
// fetched by a client during discovery.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers    []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
	ResourceDocumentation  string   `json:"resource_documentation,omitempty"`
}

// AuthorizationServerMetadata is RFC 8414 Authorization Server Metadata
// (also compatible with the OpenID Connect discovery document shape).
type AuthorizationServerMetadata struct {
	Issuer                              string   `json:"issuer"`
	AuthorizationEndpoint               string   `json:"authorization_endpoint"`
	TokenEndpoint                       string   `json:"token_endpoint"`
	RegistrationEndpoint                string   `json:"registration_endpoint,omitempty"`
	ScopesSupported                     []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported              []string `json:"response_types_supported,omitempty"`
	CodeChallengeMethodsSupported       []string `json:"code_challenge_methods_supported,omitempty"`
	TokenEndpointAuthMethodsSupported   []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	ClientIDMetadataDocumentSupported   bool     `json:"client_id_metadata_document_supported,omitempty"`
}

// ClientInformation is the client registration state persisted across
// sessions: either dynamically registered (DCR) or a Client-ID Metadata
// Document URL used as client_id directly.
type ClientInformation struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// OAuthTokenErrorResponse is the RFC 6749 §5.2 error body returned by
// token and registration endpoints on failure.
type OAuthTokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// Well-known OAuth error codes this module branches on.
const (
	ErrorInvalidClient       = "invalid_client"
	ErrorInvalidGrant        = "invalid_grant"
	ErrorInvalidRequest      = "invalid_request"
	ErrorInsufficientScope   = "insufficient_scope"
)
