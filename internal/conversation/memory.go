package conversation

import (
	"sync"
	"time"
)

// Turn is one completed exchange with the model.
type Turn struct {
	Prompt string
	Reply  string
	At     time.Time
}

// Memory is the append-only turn history shared by every request. It is
// never cleared or persisted.
type Memory struct {
	mu    sync.Mutex
	turns []Turn
}

// New returns an empty Memory.
func New() *Memory { return &Memory{} }

// Append records a completed turn. A zero At is set to the current time.
func (m *Memory) Append(t Turn) {
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	m.mu.Lock()
	m.turns = append(m.turns, t)
	m.mu.Unlock()
}

// Turns returns a copy of the history in append order.
func (m *Memory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of recorded turns.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
