// Package sessionerr holds sentinel errors for the session engine.
// Wrap these with internal/errors.DomainError when context is useful.
package sessionerr

import "errors"

var (
	// ErrNotInitialized indicates an operation was attempted before the
	// initialize handshake completed.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyInitialized indicates a second initialize request or
	// response was received.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrUnsupportedVersion indicates the negotiated protocol version is
	// not one the receiving side supports.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrCapabilityNotAdvertised indicates an outbound notification
	// requires a capability the local side never advertised.
	ErrCapabilityNotAdvertised = errors.New("capability not advertised")

	// ErrCancelled indicates a pending request was cancelled, locally or
	// by a notifications/cancelled from the peer.
	ErrCancelled = errors.New("request cancelled")

	// ErrClosed indicates the session is disconnecting or closed.
	ErrClosed = errors.New("session closed")

	// ErrMalformedReply indicates an inbound payload could not be
	// decoded, or was an error response without an id. When an id can
	// still be extracted and matches a pending request, only that request
	// fails with it; otherwise every pending request does.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrNoMatchingPending indicates a request id matched no registered
	// pending request: an inbound response's id (decoded, or extracted
	// from an undecodable payload) or an id passed for cancellation.
	ErrNoMatchingPending = errors.New("no matching pending request")

	// ErrInvalidState indicates an operation is not valid in the
	// session's current lifecycle state.
	ErrInvalidState = errors.New("invalid session state")
)
