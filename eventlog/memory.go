package eventlog

import (
	"context"
	"sync"

	"github.com/quresis/go-quresis-server/types"
)

// MemorySink keeps emitted events in emission order
type MemorySink struct {
	mu     sync.Mutex
	events []*types.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Emit(ctx context.Context, event *types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of all events
func (m *MemorySink) Events() []*types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByKind returns the events of one kind in emission order
func (m *MemorySink) ByKind(kind types.EventKind) []*types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Event
	for _, e := range m.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
