// Package wire implements the JSON-RPC 2.0 encode/decode boundary between
// a transport's raw byte frames and the session engine's typed messages.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

// ParseFailure describes a payload that could not be decoded into any of
// the four JSON-RPC message shapes.
type ParseFailure struct {
	// ID is the best-effort extracted request id, nil if none could be
	// found (spec §4.1).
	ID *mcp.RequestID
	// Code is the JSON-RPC error code a server replying to this payload
	// should use: CodeParseError for invalid JSON syntax, CodeInvalidRequest
	// for well-formed JSON that isn't a valid JSON-RPC 2.0 envelope.
	Code int
	Err  error
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("wire: parse failure: %v", f.Err)
}

func (f *ParseFailure) Unwrap() error { return f.Err }

// Encode serializes a Message to its wire form.
func Encode(msg mcp.Message) ([]byte, error) {
	return msg.MarshalJSON()
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Decode parses raw bytes into one of the four Message shapes. On failure
// it returns a *ParseFailure carrying the best-effort extracted id.
func Decode(data []byte) (mcp.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		code := mcp.CodeParseError
		if json.Valid(data) {
			code = mcp.CodeInvalidRequest
		}
		return nil, &ParseFailure{ID: ExtractID(data), Code: code, Err: err}
	}
	if env.JSONRPC != mcp.JSONRPCVersion {
		return nil, &ParseFailure{ID: ExtractID(data), Code: mcp.CodeInvalidRequest, Err: fmt.Errorf("wire: missing or wrong jsonrpc version")}
	}

	hasID := len(env.ID) > 0 && !bytes.Equal(bytes.TrimSpace(env.ID), []byte("null"))
	hasMethod := env.Method != ""
	hasResult := len(env.Result) > 0
	hasError := len(env.Error) > 0

	switch {
	case hasMethod && hasID:
		var id mcp.RequestID
		if err := id.UnmarshalJSON(env.ID); err != nil {
			return nil, &ParseFailure{ID: ExtractID(data), Code: mcp.CodeInvalidRequest, Err: err}
		}
		return mcp.Request{ID: id, Method: env.Method, Params: env.Params}, nil

	case hasMethod && !hasID:
		return mcp.Notification{Method: env.Method, Params: env.Params}, nil

	case hasResult && hasID:
		var id mcp.RequestID
		if err := id.UnmarshalJSON(env.ID); err != nil {
			return nil, &ParseFailure{ID: ExtractID(data), Code: mcp.CodeInvalidRequest, Err: err}
		}
		return mcp.SuccessResponse{ID: id, Result: env.Result}, nil

	case hasError:
		var errObj mcp.ErrorObject
		var wireErr struct {
			Code    int             `json:"code"`
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(env.Error, &wireErr); err != nil {
			return nil, &ParseFailure{ID: ExtractID(data), Code: mcp.CodeInvalidRequest, Err: err}
		}
		errObj = mcp.ErrorObject{Code: wireErr.Code, Message: wireErr.Message, Data: wireErr.Data}

		var idPtr *mcp.RequestID
		if hasID {
			var id mcp.RequestID
			if err := id.UnmarshalJSON(env.ID); err == nil {
				idPtr = &id
			}
		}
		return mcp.ErrorResponse{ID: idPtr, Error: errObj}, nil

	default:
		return nil, &ParseFailure{ID: ExtractID(data), Code: mcp.CodeInvalidRequest, Err: fmt.Errorf("wire: payload is not a recognizable JSON-RPC message")}
	}
}

// ExtractID performs a best-effort shallow scan for a top-level "id"
// field, tolerating a payload whose remainder is malformed JSON (spec
// §4.1). It returns nil when no plausible id can be found.
//
// The scan walks top-level object members by hand rather than fully
// unmarshaling, since a fully malformed payload (truncated, invalid
// escapes elsewhere, trailing garbage) must still yield its id when the
// id field itself is well-formed.
func ExtractID(data []byte) *mcp.RequestID {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}
		if key != "id" {
			// Skip this member's value without caring whether later
			// members are well-formed.
			if !skipValue(dec) {
				return nil
			}
			continue
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil
		}
		trimmed := bytes.TrimSpace(raw)
		if bytes.Equal(trimmed, []byte("null")) {
			return nil
		}
		var id mcp.RequestID
		if err := id.UnmarshalJSON(trimmed); err != nil {
			return nil
		}
		return &id
	}
	return nil
}

// skipValue consumes one JSON value (scalar, array, or object) from dec,
// reporting false if the value itself is malformed.
func skipValue(dec *json.Decoder) bool {
	tok, err := dec.Token()
	if err != nil {
		return false
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return true // scalar already consumed
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	_ = delim
	return true
}
