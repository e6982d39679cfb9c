// Package httpsse implements the streamable-HTTP MCP transport: a client
// that POSTs JSON-RPC frames and optionally reads a Server-Sent-Events
// response stream, and a server-side session manager keyed by the
// Mcp-Session-Id header.
package httpsse

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	internalerrors "github.com/jamesprial/mcp-oauth-2.1/internal/errors"
	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport"
)

// AuthProvider attaches credentials to outbound requests and recovers
// from a 401 challenge once (spec §4.7/§4.8: submit, on 401 call
// handleUnauthorized, retry exactly once with the refreshed bearer).
type AuthProvider interface {
	Authorize(ctx context.Context, req *http.Request) error
	HandleUnauthorized(ctx context.Context, resp *http.Response) error
}

// Client is the client side of the streamable-HTTP transport.
type Client struct {
	Endpoint        string
	HTTPClient      *http.Client
	Auth            AuthProvider
	Streaming       bool
	ProtocolVersion string

	mu          sync.Mutex
	sessionID   string
	lastEventID string

	frames chan mcptransport.Frame
	once   sync.Once
}

// NewClient constructs a streamable-HTTP client transport.
func NewClient(endpoint string, httpClient *http.Client, auth AuthProvider) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: httpClient,
		Auth:       auth,
		frames:     make(chan mcptransport.Frame, 16),
	}
}

func (c *Client) Connect(ctx context.Context) error { return nil }

func (c *Client) Receive() <-chan mcptransport.Frame { return c.frames }

func (c *Client) Disconnect() error {
	c.once.Do(func() { close(c.frames) })
	return nil
}

// Send POSTs one frame and delivers the response (a single JSON body, or
// each "data:" line of an SSE stream) onto the Receive channel.
func (c *Client) Send(ctx context.Context, data []byte, opts mcptransport.SendOptions) error {
	resp, err := c.doOnce(ctx, data, opts)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.Auth != nil {
		recoverErr := c.Auth.HandleUnauthorized(ctx, resp)
		resp.Body.Close()
		if recoverErr != nil {
			return fmt.Errorf("httpsse: unauthorized and recovery failed: %w", recoverErr)
		}
		resp, err = c.doOnce(ctx, data, opts)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			return fmt.Errorf("httpsse: unauthorized after credential refresh")
		}
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return internalerrors.New("httpsse", "Send", internalerrors.ErrTransport,
			fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body)))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") {
		return c.consumeEventStream(resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.frames <- mcptransport.Frame{Err: err}
		return err
	}
	if len(body) > 0 {
		c.frames <- mcptransport.Frame{Data: body}
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, data []byte, opts mcptransport.SendOptions) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	accept := "application/json"
	if opts.Streaming || c.Streaming {
		accept += ", text/event-stream"
	}
	req.Header.Set("Accept", accept)

	c.mu.Lock()
	sessionID := c.sessionID
	lastEventID := c.lastEventID
	c.mu.Unlock()

	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	if c.ProtocolVersion != "" {
		req.Header.Set("Mcp-Protocol-Version", c.ProtocolVersion)
	}
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	if c.Auth != nil {
		if err := c.Auth.Authorize(ctx, req); err != nil {
			return nil, fmt.Errorf("httpsse: authorize: %w", err)
		}
	}
	return c.HTTPClient.Do(req)
}

// consumeEventStream reads "data: <payload>" lines and "id: <id>" lines
// from an SSE body, delivering each data payload as a Frame and tracking
// the last event id for Last-Event-ID resume on the next Send.
func (c *Client) consumeEventStream(body io.ReadCloser) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var dataLines []string
	flush := func() {
		if len(dataLines) == 0 {
			return
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = nil
		c.frames <- mcptransport.Frame{Data: []byte(payload)}
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			c.mu.Lock()
			c.lastEventID = id
			c.mu.Unlock()
		}
	}
	flush()
	return scanner.Err()
}
