package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/mcp"
)

// Outcome is what a pending outbound request's channel eventually
// delivers: a successful result, a JSON-RPC error, or a
// transport/parse/cancellation failure (spec §4.3).
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// pendingEntry tracks one in-flight outbound request.
type pendingEntry struct {
	id            mcp.RequestID
	createdAt     time.Time
	progressToken string
	ch            chan Outcome
	cancelled     bool
}

// pendingTable is the id -> in-flight-request map the engine consults on
// every inbound response and on cancellation.
type pendingTable struct {
	mu              sync.Mutex
	byKey           map[string]*pendingEntry
	byProgressToken map[string]string // progress token -> id key
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		byKey:           make(map[string]*pendingEntry),
		byProgressToken: make(map[string]string),
	}
}

func (t *pendingTable) register(id mcp.RequestID, progressToken string) *pendingEntry {
	entry := &pendingEntry{id: id, createdAt: time.Now(), progressToken: progressToken, ch: make(chan Outcome, 1)}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKey[id.String()] = entry
	if progressToken != "" {
		t.byProgressToken[progressToken] = id.String()
	}
	return entry
}

func (t *pendingTable) lookup(key string) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byKey[key]
	return e, ok
}

func (t *pendingTable) lookupByProgressToken(token string) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, ok := t.byProgressToken[token]
	if !ok {
		return nil, false
	}
	e, ok := t.byKey[key]
	return e, ok
}

func (t *pendingTable) remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byKey[key]; ok {
		if e.progressToken != "" {
			delete(t.byProgressToken, e.progressToken)
		}
		delete(t.byKey, key)
	}
}

// markCancelled flags an entry so its eventual reply is discarded by the
// sender even if the handler on the other side still emits one.
func (t *pendingTable) markCancelled(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byKey[key]; ok {
		e.cancelled = true
	}
}

func (t *pendingTable) isCancelled(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byKey[key]
	return ok && e.cancelled
}

// deliver sends an outcome to the entry at key and removes it, returning
// false if no entry was registered under that key.
func (t *pendingTable) deliver(key string, outcome Outcome) bool {
	t.mu.Lock()
	e, ok := t.byKey[key]
	if ok {
		if e.progressToken != "" {
			delete(t.byProgressToken, e.progressToken)
		}
		delete(t.byKey, key)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	e.ch <- outcome
	close(e.ch)
	return true
}

// failAll delivers err to every currently pending request and clears the
// table. Used when an inbound payload's id cannot be matched to any
// pending entry and when the transport disconnects (spec §4.3: "never
// hang after a malformed reply").
func (t *pendingTable) failAll(err error) {
	t.mu.Lock()
	entries := make([]*pendingEntry, 0, len(t.byKey))
	for _, e := range t.byKey {
		entries = append(entries, e)
	}
	t.byKey = make(map[string]*pendingEntry)
	t.byProgressToken = make(map[string]string)
	t.mu.Unlock()

	for _, e := range entries {
		e.ch <- Outcome{Err: err}
		close(e.ch)
	}
}
