package wire

import (
	"encoding/json"
	"testing"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

func TestDecodeRequest(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"foo":"bar"}}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	req, ok := msg.(mcp.Request)
	if !ok {
		t.Fatalf("Decode() = %T, want mcp.Request", msg)
	}
	if req.Method != "initialize" {
		t.Errorf("Method = %q, want %q", req.Method, "initialize")
	}
	if !req.ID.Equal(mcp.NewIntID(1)) {
		t.Errorf("ID = %v, want n:1", req.ID)
	}
}

func TestDecodeNotification(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","method":"notifications/cancelled"}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	notif, ok := msg.(mcp.Notification)
	if !ok {
		t.Fatalf("Decode() = %T, want mcp.Notification", msg)
	}
	if notif.Method != "notifications/cancelled" {
		t.Errorf("Method = %q, want notifications/cancelled", notif.Method)
	}
}

func TestDecodeSuccessResponse(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":"abc","result":{"ok":true}}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	resp, ok := msg.(mcp.SuccessResponse)
	if !ok {
		t.Fatalf("Decode() = %T, want mcp.SuccessResponse", msg)
	}
	if !resp.ID.Equal(mcp.NewStringID("abc")) {
		t.Errorf("ID = %v, want s:abc", resp.ID)
	}
}

func TestDecodeErrorResponse(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":7,"error":{"code":-32601,"message":"method not found"}}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	resp, ok := msg.(mcp.ErrorResponse)
	if !ok {
		t.Fatalf("Decode() = %T, want mcp.ErrorResponse", msg)
	}
	if resp.ID == nil || !resp.ID.Equal(mcp.NewIntID(7)) {
		t.Errorf("ID = %v, want n:7", resp.ID)
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Code = %d, want -32601", resp.Error.Code)
	}
}

func TestDecodeErrorResponseNullID(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	resp, ok := msg.(mcp.ErrorResponse)
	if !ok {
		t.Fatalf("Decode() = %T, want mcp.ErrorResponse", msg)
	}
	if resp.ID != nil {
		t.Errorf("ID = %v, want nil", resp.ID)
	}
}

func TestDecodeMalformedReturnsParseFailure(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"jsonrpc":"2.0","id":5,"method":`))
	if err == nil {
		t.Fatal("Decode() expected error for truncated payload")
	}
	var pf *ParseFailure
	if !asParseFailure(err, &pf) {
		t.Fatalf("Decode() error = %T, want *ParseFailure", err)
	}
	if pf.ID == nil || !pf.ID.Equal(mcp.NewIntID(5)) {
		t.Errorf("ExtractID fallback = %v, want n:5", pf.ID)
	}
}

func TestExtractID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want *mcp.RequestID
	}{
		{"well-formed int id before garbage", `{"id":3,"method":`, idPtr(mcp.NewIntID(3))},
		{"well-formed string id", `{"jsonrpc":"2.0","id":"xyz","method":"x"}`, idPtr(mcp.NewStringID("xyz"))},
		{"id after other fields", `{"jsonrpc":"2.0","method":"x","id":42}`, idPtr(mcp.NewIntID(42))},
		{"null id", `{"id":null}`, nil},
		{"no id field", `{"jsonrpc":"2.0","method":"x"}`, nil},
		{"not an object", `[1,2,3]`, nil},
		{"empty input", ``, nil},
		{"nested object before id is skipped", `{"params":{"a":{"b":1}},"id":9}`, idPtr(mcp.NewIntID(9))},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractID([]byte(tt.data))
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ExtractID(%q) = %v, want %v", tt.data, got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("ExtractID(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	req := mcp.Request{ID: mcp.NewIntID(1), Method: "ping", Params: json.RawMessage(`{}`)}
	data, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode() unexpected error: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	got, ok := msg.(mcp.Request)
	if !ok {
		t.Fatalf("Decode() = %T, want mcp.Request", msg)
	}
	if got.Method != req.Method || !got.ID.Equal(req.ID) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func idPtr(id mcp.RequestID) *mcp.RequestID { return &id }

func asParseFailure(err error, target **ParseFailure) bool {
	pf, ok := err.(*ParseFailure)
	if !ok {
		return false
	}
	*target = pf
	return true
}
