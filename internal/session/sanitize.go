package session

import (
	"context"
	"encoding/json"
)

// SanitizeHandlerError wraps a RequestHandler so that any error it
// returns which is NOT a CodedError (i.e. did not originate from the
// engine's own validation: unknown resource, disabled resource/prompt,
// invalid params) is replaced with a generic sanitized message before
// transmission, per spec §4.3's error-sanitization rule for user-supplied
// resource/prompt handlers. The replacement is a CodedError whose Code()
// is mcp.CodeInternalError; the original error is not carried along, so
// handler bugs never leak internal detail to the wire.
func SanitizeHandlerError(h RequestHandler, sanitizedMessage func() string) RequestHandler {
	return func(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
		result, err := h(ctx, params)
		if err == nil {
			return result, nil
		}
		if _, ok := err.(CodedError); ok {
			return nil, err
		}
		return nil, &codedError{code: internalErrorCode, message: sanitizedMessage()}
	}
}

// internalErrorCode mirrors mcp.CodeInternalError without importing the
// pkg/mcp package purely for one constant reference in this file.
const internalErrorCode = -32603
