package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jamesprial/mcp-oauth-2.1/internal/mcpserver"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport/httpsse"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport/inmem"
	"github.com/jamesprial/mcp-oauth-2.1/internal/session"
	"github.com/jamesprial/mcp-oauth-2.1/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// sessionReplyTimeout bounds how long a streamable-HTTP POST waits for
// the session engine's single reply before the handler gives up and
// answers 504; the underlying session keeps running regardless.
const sessionReplyTimeout = 30 * time.Second

// clientBridge is what SessionManager.Create stores per session: the
// HTTP-facing end of an in-memory transport pair whose other end drives
// a session.Session goroutine.
type clientBridge struct {
	transport mcptransport.Transport
	sess      *session.Session
}

// mcpHandler bridges streamable-HTTP POSTs to per-session
// session.Session instances (spec §4.2): the first request without an
// Mcp-Session-Id header creates a session, every subsequent request on
// that id is routed to the same running session.
type mcpHandler struct {
	sessions    *httpsse.SessionManager
	serverCfg   mcpserver.Config
	responder   transportcore.ErrorResponder
	protocolVer string
}

// NewMCPHandler creates the HTTP handler for the streamable-HTTP MCP
// transport, backed by the session engine.
func NewMCPHandler(sessions *httpsse.SessionManager, serverCfg mcpserver.Config, responder transportcore.ErrorResponder) http.Handler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if responder == nil {
		panic("responder cannot be nil")
	}
	return &mcpHandler{sessions: sessions, serverCfg: serverCfg, responder: responder, protocolVer: "2025-06-18"}
}

func (h *mcpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get(pkgoauth.HeaderContentType)
	if contentType != pkgoauth.ContentTypeJSON && contentType != "" {
		slog.Warn("unexpected content type", "content_type", contentType)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read request body", "error", err)
		h.responder.BadRequest(w, err)
		return
	}
	defer func() {
		if closeErr := r.Body.Close(); closeErr != nil {
			slog.Warn("failed to close request body", "error", closeErr)
		}
	}()

	sessionID := r.Header.Get("Mcp-Session-Id")
	isInitialize := sessionID == ""

	var bridge *clientBridge
	if isInitialize {
		bridge = h.createSession(r.Context())
		created, err := h.sessions.Create(bridge)
		if err != nil {
			httpsse.WriteTransportError(w, http.StatusServiceUnavailable, httpsse.CodeInternalError, err.Error())
			return
		}
		w.Header().Set("Mcp-Session-Id", created.ID)
	} else {
		found, ok := h.sessions.RequireSession(w, r, false)
		if !ok {
			return
		}
		bridge = found.Value.(*clientBridge)
	}

	ctx, cancel := context.WithTimeout(r.Context(), sessionReplyTimeout)
	defer cancel()

	if err := bridge.transport.Send(ctx, body, mcptransport.SendOptions{}); err != nil {
		httpsse.WriteTransportError(w, http.StatusInternalServerError, httpsse.CodeInternalError, "session send failed: "+err.Error())
		return
	}

	select {
	case frame, ok := <-bridge.transport.Receive():
		if !ok || frame.Err != nil {
			httpsse.WriteTransportError(w, http.StatusInternalServerError, httpsse.CodeInternalError, "session closed before reply")
			return
		}
		w.Header().Set(pkgoauth.HeaderContentType, pkgoauth.ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(frame.Data); err != nil {
			slog.Error("failed to write mcp response", "error", err)
		}
	case <-ctx.Done():
		httpsse.WriteTransportError(w, http.StatusGatewayTimeout, httpsse.CodeInternalError, "timed out waiting for session reply")
	}
}

// createSession spins up a new session.Session over one end of an
// in-memory transport pair, registers the built-in protocol handlers,
// and returns the HTTP-facing bridge to the other end.
func (h *mcpHandler) createSession(parent context.Context) *clientBridge {
	serverEnd, clientEnd := inmem.NewPair()
	sess := session.New(serverEnd)
	mcpserver.Register(sess, h.serverCfg)

	// clientEnd needs its own Connect to start the goroutine that pumps
	// the session's replies into its Receive channel; serverEnd's
	// equivalent pump is started by sess.Run.
	_ = clientEnd.Connect(parent)

	runCtx := context.Background()
	go func() {
		if err := sess.Run(runCtx); err != nil {
			slog.Info("mcp session ended", "error", err)
		}
	}()

	return &clientBridge{transport: clientEnd, sess: sess}
}
