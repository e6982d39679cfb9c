// Package inmem provides a paired in-memory Transport for tests: two
// ends of the same pipe, each implementing mcptransport.Transport.
package inmem

import (
	"context"
	"errors"
	"sync"

	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport"
)

// ErrClosed is returned by Send after Disconnect.
var ErrClosed = errors.New("inmem: transport closed")

type end struct {
	mu       sync.Mutex
	closed   bool
	out      chan<- []byte
	in       <-chan []byte
	frames   chan mcptransport.Frame
	once     sync.Once
	doneOnce sync.Once
}

// NewPair returns two linked transports; data sent on one arrives on the
// other's Receive channel.
func NewPair() (mcptransport.Transport, mcptransport.Transport) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)

	a := &end{out: ab, in: ba, frames: make(chan mcptransport.Frame, 16)}
	b := &end{out: ba, in: ab, frames: make(chan mcptransport.Frame, 16)}
	return a, b
}

func (e *end) Connect(ctx context.Context) error {
	e.once.Do(func() {
		go func() {
			for data := range e.in {
				e.frames <- mcptransport.Frame{Data: data}
			}
			close(e.frames)
		}()
	})
	return nil
}

func (e *end) Send(ctx context.Context, data []byte, _ mcptransport.SendOptions) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	select {
	case e.out <- append([]byte(nil), data...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *end) Receive() <-chan mcptransport.Frame {
	return e.frames
}

func (e *end) Disconnect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.doneOnce.Do(func() { close(e.out) })
	return nil
}
