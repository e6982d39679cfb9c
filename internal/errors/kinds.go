package errors

import "errors"

// Sentinel Kind values for subsystems added beyond the original OAuth
// resource-server scope. DomainError.Kind stays a plain sentinel error so
// errors.Is/As keep working across package boundaries without a shared
// enum type.
var (
	// ErrTransport indicates a failure in the underlying message
	// transport (stdio, in-memory pair, or streamable-HTTP).
	ErrTransport = errors.New("transport error")

	// ErrParse indicates a payload could not be decoded as JSON-RPC 2.0.
	ErrParse = errors.New("parse error")

	// ErrJSONRPC indicates a well-formed JSON-RPC envelope that the
	// session engine still could not route or dispatch.
	ErrJSONRPC = errors.New("jsonrpc error")

	// ErrOAuthProtocol indicates the authorization server or resource
	// server returned a response that violates the OAuth 2.1 wire
	// protocol (malformed token response, missing required metadata
	// field, unsupported token_type).
	ErrOAuthProtocol = errors.New("oauth protocol error")

	// ErrOAuthPipeline indicates a failure in the client-side token
	// acquisition pipeline (discovery, registration, token exchange,
	// refresh) rather than in the wire protocol itself.
	ErrOAuthPipeline = errors.New("oauth pipeline error")

	// ErrCapability indicates an operation required a capability that
	// was never negotiated during initialize.
	ErrCapability = errors.New("capability error")
)
