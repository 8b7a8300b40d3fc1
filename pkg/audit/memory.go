package audit

import (
	"context"
	"sync"
)

// MemoryRecorder keeps events in memory. Intended for tests and ephemeral
// runs; events are lost on process exit.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record stores one event.
func (m *MemoryRecorder) Record(_ context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Query returns matching events, newest first.
func (m *MemoryRecorder) Query(_ context.Context, f QueryFilter) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Event
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if f.Node != "" && ev.Node != f.Node {
			continue
		}
		if f.Op != "" && ev.Op != f.Op {
			continue
		}
		if !f.Since.IsZero() && ev.Time.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !ev.Time.Before(f.Until) {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored events.
func (m *MemoryRecorder) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Close is a no-op.
func (m *MemoryRecorder) Close() error {
	return nil
}
