package session

import (
	"context"
	"encoding/json"
)

// RequestHandler answers an inbound request. Returning an error produces
// a JSON-RPC error response; the engine assigns code CodeInternalError
// unless the error implements CodedError.
type RequestHandler func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// NotificationHandler handles an inbound one-way notification.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// CodedError lets a handler specify the JSON-RPC error code the engine
// should use instead of the internal-error default.
type CodedError interface {
	error
	Code() int
}

// codedError is the concrete CodedError the engine itself returns for
// routing failures (method not found, capability gating).
type codedError struct {
	code    int
	message string
}

func (e *codedError) Error() string { return e.message }
func (e *codedError) Code() int     { return e.code }

// gatedCapabilities maps a capability-gated outbound notification method
// to the top-level capability it requires to have been advertised
// locally, per spec §4.4's "server MUST reject notifications for
// capabilities it did not advertise".
var gatedCapabilities = map[string]string{
	"notifications/tools/list_changed":     "tools",
	"notifications/resources/list_changed": "resources",
	"notifications/resources/updated":      "resources",
	"notifications/prompts/list_changed":   "prompts",
}
