package node

import (
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
)

// Constants

const (
	actionQueued    = "queued"
	actionDelivered = "delivered"
)

// Structs

// AuditEntry is one line of the per-node audit log: which
// record event the node processed, where it originated, under
// which clock and when.
type AuditEntry struct {
	ID     string            `json:"id"`
	Time   time.Time         `json:"time"`
	Action string            `json:"action"`
	Key    string            `json:"key"`
	Origin string            `json:"origin"`
	Node   string            `json:"node"`
	Clock  map[string]uint32 `json:"vector_clock"`
}

// auditLog is an append-only in-memory log. It carries its own
// lock so that readers never have to take the node-wide lock.
type auditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Functions

// append adds one entry to the log. The supplied clock is
// copied so that later clock mutations cannot reach into
// logged history.
func (l *auditLog) append(action string, key string, origin string, clock map[string]uint32, node string) {

	frozen := make(map[string]uint32, len(clock))
	for id, value := range clock {
		frozen[id] = value
	}

	entry := AuditEntry{
		ID:     uuid.NewV4().String(),
		Time:   time.Now(),
		Action: action,
		Key:    key,
		Origin: origin,
		Node:   node,
		Clock:  frozen,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
}

// list returns a copy of all entries in append order.
func (l *auditLog) list() []AuditEntry {

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]AuditEntry, len(l.entries))
	copy(entries, l.entries)

	return entries
}

// size returns the number of logged entries.
func (l *auditLog) size() int {

	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
