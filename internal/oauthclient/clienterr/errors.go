// Package clienterr provides OAuth 2.1 client-side error constructors.
// It is separate from internal/oauthclient's subpackages to avoid import
// cycles when discovery/providers/storage all need to construct errors.
package clienterr

import (
	"errors"
	"fmt"

	ierrors "github.com/jamesprial/mcp-oauth-2.1/internal/errors"
)

const domainOAuthClient = "oauthclient"

// NewDiscoveryFailedError wraps a PRM/AS-metadata discovery failure after
// every URL in the fallback chain has been exhausted.
func NewDiscoveryFailedError(op, resource string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrOAuthPipeline, err).
		WithContext("resource", resource)
}

// NewInvalidMetadataError wraps a metadata document that parsed but failed
// validation (missing required field, issuer mismatch, unsafe endpoint).
func NewInvalidMetadataError(op, source string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrOAuthProtocol, err).
		WithContext("source", source)
}

// NewUnsafeEndpointError wraps an endpoint rejected by primitives.ValidateEndpointSafety.
func NewUnsafeEndpointError(op, endpoint string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrBadRequest, err).
		WithContext("endpoint", endpoint)
}

// NewTokenRequestFailedError wraps a failed token/authorize HTTP exchange.
func NewTokenRequestFailedError(op string, statusCode int, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrOAuthPipeline, err).
		WithContext("status_code", statusCode)
}

// NewInvalidClientError wraps an AS-reported invalid_client error, the
// trigger for the single-flight credential refresh/retry path.
func NewInvalidClientError(op string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrUnauthorized, err).
		WithContext("oauth_error", "invalid_client")
}

// NewInvalidGrantError wraps an AS-reported invalid_grant error from a
// refresh or authorization-code exchange; it propagates unchanged to the
// caller rather than triggering retry.
func NewInvalidGrantError(op string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrUnauthorized, err).
		WithContext("oauth_error", "invalid_grant")
}

// NewStateMismatchError wraps a CSRF state mismatch on the authorization
// code callback.
func NewStateMismatchError(op string) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrUnauthorized, fmt.Errorf("state parameter mismatch")).
		WithContext("reason", "csrf_state_mismatch")
}

// NewNoTokenError wraps a storage lookup that found no usable token for a
// resource/client pair.
func NewNoTokenError(op, resource string) *ierrors.DomainError {
	return ierrors.New(domainOAuthClient, op, ierrors.ErrNotFound, fmt.Errorf("no token stored")).
		WithContext("resource", resource)
}

// IsInvalidClient reports whether err is (or wraps) an invalid_client
// error constructed by NewInvalidClientError, the trigger for the
// one-shot re-registration retry of spec §4.7.1 step 7.
func IsInvalidClient(err error) bool {
	var de *ierrors.DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Context["oauth_error"] == "invalid_client"
}
