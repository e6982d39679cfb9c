package httpsse

import (
	"net/http/httptest"
	"testing"
)

func TestSessionManagerEnforcesMaxSessions(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(2)

	if _, err := m.Create("a"); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := m.Create("b"); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if _, err := m.Create("c"); err != ErrSessionLimitExceeded {
		t.Fatalf("Create() error = %v, want ErrSessionLimitExceeded", err)
	}
}

func TestSessionManagerGetUnknown(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(0)
	if _, err := m.Get("missing"); err != ErrUnknownSession {
		t.Fatalf("Get() error = %v, want ErrUnknownSession", err)
	}
}

func TestRequireSessionMissingHeaderNonInitialize(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(0)
	req := httptest.NewRequest("POST", "/mcp", nil)
	w := httptest.NewRecorder()

	_, ok := m.RequireSession(w, req, false)
	if ok {
		t.Fatal("RequireSession() = true, want false for missing header")
	}
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequireSessionMissingHeaderInitializeAllowed(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(0)
	req := httptest.NewRequest("POST", "/mcp", nil)
	w := httptest.NewRecorder()

	sess, ok := m.RequireSession(w, req, true)
	if !ok {
		t.Fatal("RequireSession() = false, want true for initialize without session id")
	}
	if sess != nil {
		t.Errorf("sess = %+v, want nil (caller creates one)", sess)
	}
}

func TestRequireSessionUnknownID(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(0)
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Mcp-Session-Id", "bogus")
	w := httptest.NewRecorder()

	_, ok := m.RequireSession(w, req, false)
	if ok {
		t.Fatal("RequireSession() = true, want false for unknown session id")
	}
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRequireSessionKnownID(t *testing.T) {
	t.Parallel()

	m := NewSessionManager(0)
	created, err := m.Create("value")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set("Mcp-Session-Id", created.ID)
	w := httptest.NewRecorder()

	sess, ok := m.RequireSession(w, req, false)
	if !ok {
		t.Fatal("RequireSession() = false, want true for known session id")
	}
	if sess.ID != created.ID {
		t.Errorf("sess.ID = %q, want %q", sess.ID, created.ID)
	}
}
