package supervisor

import (
	"encoding/json"
	"sync"
)

// pendingResult is delivered exactly once to the awaiter of a request
// over a one-shot reply channel.
type pendingResult struct {
	Payload json.RawMessage
	Err     error
}

// pendingTable maps requestId -> one-shot completion channel. It is the
// guarded structure invariant C2 demands: every inserted entry is
// either fulfilled, rejected on disconnect, or rejected on timeout, and
// never retained past its outcome.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]chan pendingResult
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]chan pendingResult)}
}

// insert creates a fresh one-shot reply channel for requestID. The
// caller is responsible for eventually calling remove, directly or via
// resolve/drain.
func (t *pendingTable) insert(requestID string) chan pendingResult {
	ch := make(chan pendingResult, 1)
	t.mu.Lock()
	t.entries[requestID] = ch
	t.mu.Unlock()
	return ch
}

// remove deletes requestID without signalling anyone. Used by the
// awaiter on its own timeout path, where the reply is simply abandoned.
func (t *pendingTable) remove(requestID string) {
	t.mu.Lock()
	delete(t.entries, requestID)
	t.mu.Unlock()
}

// resolve delivers res to requestID's waiter and removes the entry. It
// reports whether a waiter was found.
func (t *pendingTable) resolve(requestID string, res pendingResult) bool {
	t.mu.Lock()
	ch, ok := t.entries[requestID]
	if ok {
		delete(t.entries, requestID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- res
	close(ch)
	return true
}

// drainDisconnect rejects every outstanding entry with err, the
// mandatory behavior on any transition into Disconnected (P2).
func (t *pendingTable) drainDisconnect(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]chan pendingResult)
	t.mu.Unlock()
	for _, ch := range entries {
		ch <- pendingResult{Err: err}
		close(ch)
	}
}

// len reports the number of outstanding entries, for tests asserting P1/P2.
func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
