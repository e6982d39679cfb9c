package mcp

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestMarshalOmitsAbsentParams(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Request{ID: NewIntID(1), Method: "ping"})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	if strings.Contains(string(data), "params") {
		t.Errorf("Marshal() = %s, want no params field", data)
	}
}

func TestRequestMarshalRejectsZeroID(t *testing.T) {
	t.Parallel()

	if _, err := json.Marshal(Request{Method: "ping"}); err == nil {
		t.Fatal("Marshal() expected error for zero-value id")
	}
}

func TestNotificationMarshalHasNoIDField(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Notification{Method: "notifications/cancelled"})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	if strings.Contains(string(data), `"id"`) {
		t.Errorf("Marshal() = %s, want no id field", data)
	}
}

func TestErrorResponseMarshalNullID(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ErrorResponse{ID: nil, Error: ErrorObject{Code: CodeParseError, Message: "parse error"}})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"id":null`) {
		t.Errorf("Marshal() = %s, want explicit id:null", data)
	}
}

func TestErrorResponseMarshalWithID(t *testing.T) {
	t.Parallel()

	id := NewIntID(5)
	data, err := json.Marshal(ErrorResponse{ID: &id, Error: ErrorObject{Code: CodeInvalidParams, Message: "bad params"}})
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"id":5`) {
		t.Errorf("Marshal() = %s, want id:5", data)
	}
}

func TestSuccessResponseMarshalRejectsZeroID(t *testing.T) {
	t.Parallel()

	if _, err := json.Marshal(SuccessResponse{Result: json.RawMessage(`{}`)}); err == nil {
		t.Fatal("Marshal() expected error for zero-value id")
	}
}
