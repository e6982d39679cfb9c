// Package mcptransport defines the transport abstraction the session
// engine drives: connect, send a frame, receive a finite non-restartable
// sequence of frames, disconnect. Concrete transports (stdio, in-memory,
// streamable HTTP/SSE) live in subpackages.
package mcptransport

import "context"

// Frame is one inbound byte payload, or a terminal error that ends the
// receive sequence. Exactly one of Data or Err is set; once Err is
// non-nil no further frames follow.
type Frame struct {
	Data []byte
	Err  error
}

// Transport is the contract every concrete transport implements. Receive
// returns a channel that is closed when the transport disconnects (after
// optionally emitting a final error Frame); it must never be restarted
// once closed.
type Transport interface {
	// Connect establishes the underlying channel (process pipes, TCP
	// socket, HTTP client session). It is a no-op for transports that
	// are connected at construction time.
	Connect(ctx context.Context) error

	// Send writes one frame. Concurrent calls to Send must be safe;
	// transports that are not naturally concurrency-safe serialize
	// internally.
	Send(ctx context.Context, data []byte, opts SendOptions) error

	// Receive returns the channel of inbound frames. It is valid to
	// call Receive only once per Transport; the returned channel is
	// closed exactly once, when the transport has nothing left to
	// deliver.
	Receive() <-chan Frame

	// Disconnect tears down the underlying channel. It unblocks any
	// pending Receive and is idempotent.
	Disconnect() error
}

// SendOptions carries per-send hints a transport may honor; zero value
// means "no special handling". The HTTP/SSE transport uses Streaming to
// decide whether to keep the response open for server-to-client pushes.
type SendOptions struct {
	Streaming bool
}
