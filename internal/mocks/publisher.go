package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasknotify/internal/events"
)

// MockPublisher implements events.Publisher by recording published events
type MockPublisher struct {
	PublishFn func(ctx context.Context, event *events.Event) error

	mu     sync.Mutex
	events []*events.Event
}

// Publish implements events.Publisher
func (m *MockPublisher) Publish(ctx context.Context, event *events.Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.PublishFn != nil {
		return m.PublishFn(ctx, event)
	}
	return nil
}

// Events returns the published events in order
func (m *MockPublisher) Events() []*events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*events.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the types of the published events in order
func (m *MockPublisher) Types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

var _ events.Publisher = (*MockPublisher)(nil)
