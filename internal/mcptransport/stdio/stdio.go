// Package stdio implements mcptransport.Transport over line-delimited
// JSON on a pair of io.Reader/io.Writer, the shape used when an MCP
// server is spawned as a child process communicating over its pipes.
package stdio

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jamesprial/mcp-oauth-2.1/internal/mcptransport"
)

// ErrClosed is returned by Send after Disconnect.
var ErrClosed = errors.New("stdio: transport closed")

// Transport reads newline-delimited JSON frames from r and writes them
// to w, one frame per line.
type Transport struct {
	r io.Reader
	w io.Writer
	c io.Closer // optional; closed on Disconnect

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool

	frames chan mcptransport.Frame
	once   sync.Once
}

// New creates a stdio transport. c may be nil if neither r nor w need
// explicit closing (e.g. os.Stdin/os.Stdout, which Disconnect should not
// close).
func New(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{r: r, w: w, c: c, frames: make(chan mcptransport.Frame, 16)}
}

func (t *Transport) Connect(ctx context.Context) error {
	t.once.Do(func() {
		go t.readLoop()
	})
	return nil
}

func (t *Transport) readLoop() {
	scanner := bufio.NewScanner(t.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		data := append([]byte(nil), line...)
		t.frames <- mcptransport.Frame{Data: data}
	}
	if err := scanner.Err(); err != nil {
		t.frames <- mcptransport.Frame{Err: err}
	}
	close(t.frames)
}

func (t *Transport) Send(ctx context.Context, data []byte, _ mcptransport.SendOptions) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.w.Write(data); err != nil {
		return err
	}
	_, err := t.w.Write([]byte("\n"))
	return err
}

func (t *Transport) Receive() <-chan mcptransport.Frame {
	return t.frames
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.c != nil {
		return t.c.Close()
	}
	return nil
}
