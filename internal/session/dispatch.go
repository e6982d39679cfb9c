package session

import (
	"context"
	"encoding/json"
	"fmt"

	internalerrors "github.com/jamesprial/mcp-oauth-2.1/internal/errors"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport"
	"github.com/jamesprial/mcp-oauth-2.1/internal/session/sessionerr"
	"github.com/jamesprial/mcp-oauth-2.1/internal/wire"
	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

// Run drives the single receive loop: it pulls frames from the
// transport, decodes them, and dispatches until the transport closes or
// ctx is cancelled. It returns the reason the loop stopped.
func (s *Session) Run(ctx context.Context) error {
	if err := s.transition(StateConnecting); err != nil {
		return err
	}
	if err := s.transport.Connect(ctx); err != nil {
		_ = s.transition(StateClosed)
		return err
	}
	if err := s.transition(StateInitializing); err != nil {
		return err
	}

	frames := s.transport.Receive()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				s.shutdown()
				return nil
			}
			if frame.Err != nil {
				s.pending.failAll(frame.Err)
				s.shutdown()
				return frame.Err
			}
			s.handleFrame(ctx, frame.Data)
		}
	}
}

func (s *Session) shutdown() {
	_ = s.transition(StateDisconnecting)
	s.pending.failAll(sessionerr.ErrClosed)
	s.wg.Wait()
	_ = s.transition(StateClosed)
	s.closeOnce.Do(func() { close(s.closed) })
}

// Close tears down the transport and fails every pending request.
func (s *Session) Close() error {
	err := s.transport.Disconnect()
	s.shutdown()
	return err
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		domainErr := internalerrors.New("session", "handleFrame", internalerrors.ErrParse, err)
		s.logger.Warn("session: frame decode failed", "error", domainErr)
		s.handleUnroutable(ctx, err)
		return
	}

	switch m := msg.(type) {
	case mcp.Request:
		s.dispatchRequest(ctx, m)
	case mcp.Notification:
		s.dispatchNotification(ctx, m)
	case mcp.SuccessResponse:
		s.dispatchResponse(m.ID, Outcome{Result: m.Result})
	case mcp.ErrorResponse:
		s.dispatchErrorResponse(m)
	default:
		s.logger.Warn("session: decoded message of unexpected type", "type", fmt.Sprintf("%T", msg))
	}
}

// handleUnroutable implements the malformed/unmatched-id contract of
// spec §4.3: a best-effort id is extracted from the failed decode; if it
// matches a pending request (and not a cancellation tombstone), exactly
// that request fails and every other pending request stays pending. A
// payload that can't be correlated to a pending call is treated as an
// inbound request we failed to parse: it gets a JSON-RPC error reply per
// the code wire.Decode classified it under, and every pending request
// fails.
func (s *Session) handleUnroutable(ctx context.Context, err error) {
	var pf *wire.ParseFailure
	if pe, ok := err.(*wire.ParseFailure); ok {
		pf = pe
	}

	if pf == nil {
		s.logger.Warn("session: unroutable frame", "error", internalerrors.New("session", "handleUnroutable", internalerrors.ErrJSONRPC, err))
		s.pending.failAll(fmt.Errorf("%w: %v", sessionerr.ErrMalformedReply, err))
		return
	}

	if pf.ID == nil {
		s.sendErrorResponse(ctx, nil, pf.Code, pf.Err.Error())
		s.pending.failAll(fmt.Errorf("%w: %v", sessionerr.ErrMalformedReply, err))
		return
	}

	key := pf.ID.String()
	if s.isCancelledTombstone(key) {
		s.clearCancelledTombstone(key)
		return
	}
	if _, ok := s.pending.lookup(key); ok {
		s.pending.deliver(key, Outcome{Err: fmt.Errorf("%w: %v", sessionerr.ErrMalformedReply, err)})
		return
	}
	s.sendErrorResponse(ctx, pf.ID, pf.Code, pf.Err.Error())
	s.pending.failAll(fmt.Errorf("%w: %v", sessionerr.ErrNoMatchingPending, err))
}

func (s *Session) dispatchResponse(id mcp.RequestID, outcome Outcome) {
	key := id.String()
	if s.isCancelledTombstone(key) {
		s.clearCancelledTombstone(key)
		return
	}
	if s.pending.deliver(key, outcome) {
		return
	}
	s.pending.failAll(sessionerr.ErrNoMatchingPending)
}

func (s *Session) dispatchErrorResponse(m mcp.ErrorResponse) {
	if m.ID == nil {
		s.pending.failAll(fmt.Errorf("%w: %s", sessionerr.ErrMalformedReply, m.Error.Message))
		return
	}
	s.dispatchResponse(*m.ID, Outcome{Err: &codedError{code: m.Error.Code, message: m.Error.Message}})
}

func (s *Session) isCancelledTombstone(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancelledIDs[key]
	return ok
}

func (s *Session) clearCancelledTombstone(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancelledIDs, key)
}

func (s *Session) dispatchRequest(ctx context.Context, req mcp.Request) {
	s.mu.Lock()
	handler, ok := s.requestHandlers[req.Method]
	if !ok {
		handler = s.fallbackRequest
		ok = handler != nil
	}
	s.mu.Unlock()

	if !ok {
		s.sendError(ctx, req.ID, mcp.CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	key := req.ID.String()
	s.mu.Lock()
	s.inFlightCancel[key] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlightCancel, key)
			s.mu.Unlock()
			cancel()
		}()

		result, err := handler(reqCtx, req.Params)
		if err != nil {
			code := mcp.CodeInternalError
			if ce, ok := err.(CodedError); ok {
				code = ce.Code()
			}
			s.sendError(ctx, req.ID, code, err.Error())
			return
		}
		s.sendResult(ctx, req.ID, result)
	}()
}

func (s *Session) dispatchNotification(ctx context.Context, notif mcp.Notification) {
	switch notif.Method {
	case "notifications/cancelled":
		s.handleCancelledNotification(notif.Params)
		return
	case "notifications/progress":
		s.handleProgressNotification(ctx, notif.Params)
		return
	}

	s.mu.Lock()
	handler, ok := s.notificationHandlers[notif.Method]
	if !ok {
		handler = s.fallbackNotification
		ok = handler != nil
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		handler(ctx, notif.Params)
	}()
}

func (s *Session) handleCancelledNotification(params json.RawMessage) {
	var p cancelParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	s.mu.Lock()
	cancel, ok := s.inFlightCancel[p.RequestID.String()]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Session) handleProgressNotification(ctx context.Context, params json.RawMessage) {
	var p progressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}

	s.mu.Lock()
	fn, ok := s.progressCallbacks[p.ProgressToken]
	fallback := s.fallbackNotification
	s.mu.Unlock()

	if ok && fn != nil {
		fn(p.Progress, p.Total, p.Message)
		return
	}
	if fallback != nil {
		raw, _ := json.Marshal(p)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			fallback(ctx, raw)
		}()
	}
}

func (s *Session) sendResult(ctx context.Context, id mcp.RequestID, result json.RawMessage) {
	data, err := wire.Encode(mcp.SuccessResponse{ID: id, Result: result})
	if err != nil {
		s.logger.Error("session: failed to encode success response", "error", err)
		return
	}
	if err := s.transport.Send(ctx, data, mcptransport.SendOptions{}); err != nil {
		s.logger.Error("session: failed to send success response", "error", err)
	}
}

func (s *Session) sendError(ctx context.Context, id mcp.RequestID, code int, message string) {
	idCopy := id
	s.sendErrorResponse(ctx, &idCopy, code, message)
}

// sendErrorResponse writes a JSON-RPC error reply, with a null id when id
// is nil (the only legal shape for a reply to an unparseable request).
func (s *Session) sendErrorResponse(ctx context.Context, id *mcp.RequestID, code int, message string) {
	data, err := wire.Encode(mcp.ErrorResponse{ID: id, Error: mcp.ErrorObject{Code: code, Message: message}})
	if err != nil {
		s.logger.Error("session: failed to encode error response", "error", err)
		return
	}
	if err := s.transport.Send(ctx, data, mcptransport.SendOptions{}); err != nil {
		s.logger.Error("session: failed to send error response", "error", err)
	}
}
