// Package session implements the MCP JSON-RPC session engine: request and
// notification dispatch, response correlation, cancellation, progress,
// and capability-gated outbound notifications (spec §4.3).
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	internalerrors "github.com/jamesprial/mcp-oauth-2.1/internal/errors"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport"
	"github.com/jamesprial/mcp-oauth-2.1/internal/session/sessionerr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/wire"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

// ProgressFunc receives a notifications/progress delivery correlated by
// token to the request that registered it.
type ProgressFunc func(progress float64, total *float64, message string)

// CallOption configures an outbound request issued via Call.
type CallOption func(*callConfig)

type callConfig struct {
	progressToken string
	onProgress    ProgressFunc
}

// WithProgress attaches a progress token to the outbound request's
// `_meta.progressToken` and routes matching notifications/progress to fn.
func WithProgress(token string, fn ProgressFunc) CallOption {
	return func(c *callConfig) {
		c.progressToken = token
		c.onProgress = fn
	}
}

// Session is one bidirectional JSON-RPC conversation over a transport.
// It is safe for concurrent use.
type Session struct {
	transport mcptransport.Transport
	logger    *slog.Logger
	tracer    trace.Tracer

	pending *pendingTable

	mu                    sync.Mutex
	state                 State
	requestHandlers       map[string]RequestHandler
	notificationHandlers  map[string]NotificationHandler
	fallbackRequest       RequestHandler
	fallbackNotification  NotificationHandler
	advertisedCaps        map[string]bool
	inFlightCancel        map[string]context.CancelFunc
	cancelledIDs          map[string]struct{}
	progressCallbacks     map[string]ProgressFunc // keyed by progress token
	idSeq                 int64
	wg                    sync.WaitGroup
	closeOnce             sync.Once
	closed                chan struct{}
}

// Option configures a new Session.
type Option func(*Session)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTracer attaches an OpenTelemetry tracer for request/response spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// New creates a Session bound to transport, in state Created.
func New(transport mcptransport.Transport, opts ...Option) *Session {
	s := &Session{
		transport:            transport,
		logger:               slog.Default(),
		pending:              newPendingTable(),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		advertisedCaps:       make(map[string]bool),
		inFlightCancel:       make(map[string]context.CancelFunc),
		cancelledIDs:         make(map[string]struct{}),
		closed:               make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition advances the state machine, rejecting any move that is not
// monotonically forward (or to Closed).
func (s *Session) transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canAdvance(s.state, next) {
		return internalerrors.New("session", "transition", internalerrors.ErrBadRequest, sessionerr.ErrInvalidState).
			WithContext("from", s.state.String()).WithContext("to", next.String())
	}
	s.state = next
	return nil
}

// RegisterRequestHandler installs the handler for an inbound request
// method, overwriting any prior registration.
func (s *Session) RegisterRequestHandler(method string, h RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestHandlers[method] = h
}

// RegisterNotificationHandler installs the handler for an inbound
// notification method.
func (s *Session) RegisterNotificationHandler(method string, h NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationHandlers[method] = h
}

// SetFallbackRequestHandler installs the handler consulted when no
// method-specific request handler is registered.
func (s *Session) SetFallbackRequestHandler(h RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbackRequest = h
}

// SetFallbackNotificationHandler installs the handler consulted when no
// method-specific notification handler is registered, and the handler
// that receives progress notifications whose token is unknown.
func (s *Session) SetFallbackNotificationHandler(h NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbackNotification = h
}

// SetAdvertisedCapabilities records which top-level capabilities this
// side advertised during initialize, gating outbound *ListChanged /
// resources/updated notifications (spec §4.4).
func (s *Session) SetAdvertisedCapabilities(caps map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advertisedCaps = caps
}

func (s *Session) nextID() mcp.RequestID {
	n := atomic.AddInt64(&s.idSeq, 1)
	return mcp.NewIntID(n)
}

// Call issues an outbound request and blocks until a matching response,
// a transport/parse failure, or ctx cancellation.
func (s *Session) Call(ctx context.Context, method string, params any, opts ...CallOption) (json.RawMessage, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	paramsRaw, err := encodeParamsWithProgress(params, cfg.progressToken)
	if err != nil {
		return nil, err
	}

	id := s.nextID()
	entry := s.pending.register(id, cfg.progressToken)
	if cfg.onProgress != nil {
		s.mu.Lock()
		if s.progressCallbacks == nil {
			s.progressCallbacks = make(map[string]ProgressFunc)
		}
		s.progressCallbacks[cfg.progressToken] = cfg.onProgress
		s.mu.Unlock()
	}

	data, err := wire.Encode(mcp.Request{ID: id, Method: method, Params: paramsRaw})
	if err != nil {
		s.pending.remove(id.String())
		return nil, err
	}
	if err := s.transport.Send(ctx, data, mcptransport.SendOptions{}); err != nil {
		s.pending.remove(id.String())
		return nil, err
	}

	select {
	case outcome := <-entry.ch:
		return outcome.Result, outcome.Err
	case <-ctx.Done():
		s.pending.remove(id.String())
		return nil, ctx.Err()
	case <-s.closed:
		return nil, sessionerr.ErrClosed
	}
}

// Notify sends a one-way notification. Capability-gated methods (the
// *ListChanged / resources/updated family) are rejected locally if the
// corresponding capability was never advertised.
func (s *Session) Notify(ctx context.Context, method string, params any) error {
	if capName, gated := gatedCapabilities[method]; gated {
		s.mu.Lock()
		ok := s.advertisedCaps[capName]
		s.mu.Unlock()
		if !ok {
			err := &codedError{code: mcp.CodeInvalidRequest, message: fmt.Sprintf("capability %q not advertised", capName)}
			s.logger.Warn("session: rejected notification", "method", method, "error", internalerrors.New("session", "Notify", internalerrors.ErrCapability, err))
			return err
		}
	}

	paramsRaw, err := encodeParams(params)
	if err != nil {
		return err
	}
	data, err := wire.Encode(mcp.Notification{Method: method, Params: paramsRaw})
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, data, mcptransport.SendOptions{})
}

// Progress sends notifications/progress correlated by token to whichever
// outbound request the peer tagged with that token.
func (s *Session) Progress(ctx context.Context, token string, progress float64, total *float64, message string) error {
	params := progressParams{ProgressToken: token, Progress: progress, Total: total, Message: message}
	return s.Notify(ctx, "notifications/progress", params)
}

type progressParams struct {
	ProgressToken string   `json:"progressToken"`
	Progress      float64  `json:"progress"`
	Total         *float64 `json:"total,omitempty"`
	Message       string   `json:"message,omitempty"`
}

type cancelParams struct {
	RequestID mcp.RequestID `json:"requestId"`
	Reason    string        `json:"reason,omitempty"`
}

// CancelRequest sends notifications/cancelled for id and completes the
// corresponding pending entry locally with sessionerr.ErrCancelled. Any
// reply that later arrives for this id is discarded rather than routed.
func (s *Session) CancelRequest(ctx context.Context, id mcp.RequestID, reason string) error {
	key := id.String()
	s.pending.markCancelled(key)
	if !s.pending.deliver(key, Outcome{Err: sessionerr.ErrCancelled}) {
		return sessionerr.ErrNoMatchingPending
	}

	s.mu.Lock()
	s.cancelledIDs[key] = struct{}{}
	s.mu.Unlock()

	return s.Notify(ctx, "notifications/cancelled", cancelParams{RequestID: id, Reason: reason})
}

func encodeParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(params)
}

// encodeParamsWithProgress marshals params and, if progressToken is
// non-empty, injects it as `_meta.progressToken` into the encoded object.
func encodeParamsWithProgress(params any, progressToken string) (json.RawMessage, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	if progressToken == "" {
		return raw, nil
	}

	var obj map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("session: params must be a JSON object to carry a progress token: %w", err)
		}
	} else {
		obj = make(map[string]json.RawMessage)
	}
	meta, err := json.Marshal(map[string]string{"progressToken": progressToken})
	if err != nil {
		return nil, err
	}
	obj["_meta"] = meta
	return json.Marshal(obj)
}
