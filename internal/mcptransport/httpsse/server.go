package httpsse

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionLimitExceeded is returned by SessionManager.Create when
// MaxSessions has already been reached.
var ErrSessionLimitExceeded = errors.New("httpsse: session limit exceeded")

// ErrUnknownSession is returned by SessionManager.Get for an id with no
// matching session.
var ErrUnknownSession = errors.New("httpsse: unknown session id")

// Session is one server-side streamable-HTTP session: an id plus
// whatever the caller needs to route subsequent requests (typically a
// session engine instance). Value is opaque to the manager.
type Session struct {
	ID    string
	Value any
}

// SessionManager maintains the id -> Session map described in spec §4.2:
// it enforces MaxSessions and classifies lookup failures the HTTP layer
// must turn into the documented 400/404/503 responses.
type SessionManager struct {
	MaxSessions int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager allowing up to maxSessions
// concurrent sessions. maxSessions <= 0 means unlimited.
func NewSessionManager(maxSessions int) *SessionManager {
	return &SessionManager{MaxSessions: maxSessions, sessions: make(map[string]*Session)}
}

// Create allocates a new session id and registers value under it.
func (m *SessionManager) Create(value any) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MaxSessions > 0 && len(m.sessions) >= m.MaxSessions {
		return nil, ErrSessionLimitExceeded
	}

	id := uuid.NewString()
	sess := &Session{ID: id, Value: value}
	m.sessions[id] = sess
	return sess, nil
}

// Get looks up a session by id.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

// Remove deletes a session, e.g. after a client-initiated disconnect.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of active sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// jsonRPCErrorBody is the body every transport-level error response
// carries, per spec §4.2: {"jsonrpc":"2.0","id":null,"error":{...}}.
type jsonRPCErrorBody struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      *int         `json:"id"`
	Error   jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteTransportError writes one of the transport-level error responses
// (missing/unknown session id, session limit exceeded) with the exact
// status, headers, and JSON-RPC error body spec §4.2 requires.
func WriteTransportError(w http.ResponseWriter, status, code int, message string) {
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "60")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := jsonRPCErrorBody{
		JSONRPC: "2.0",
		ID:      nil,
		Error:   jsonRPCError{Code: code, Message: message},
	}
	_ = json.NewEncoder(w).Encode(body)
}

// Transport-level error codes used alongside WriteTransportError.
const (
	CodeInvalidRequest = -32600
	CodeInternalError  = -32603
)

// RequireSession resolves the session for r, writing the documented HTTP
// error and returning ok=false when the request cannot be routed:
//   - isInitialize=false and the Mcp-Session-Id header is absent: 400.
//   - the header names a session the manager does not know: 404.
func (m *SessionManager) RequireSession(w http.ResponseWriter, r *http.Request, isInitialize bool) (*Session, bool) {
	id := r.Header.Get("Mcp-Session-Id")
	if id == "" {
		if isInitialize {
			return nil, true
		}
		WriteTransportError(w, http.StatusBadRequest, CodeInvalidRequest, "missing Mcp-Session-Id header")
		return nil, false
	}

	sess, err := m.Get(id)
	if err != nil {
		WriteTransportError(w, http.StatusNotFound, CodeInvalidRequest, "unknown session id")
		return nil, false
	}
	return sess, true
}
