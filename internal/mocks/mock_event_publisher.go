package mocks

import (
	"context"
	"sync"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

// MockEventPublisher records every published event.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []domain.Event
	Err    error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = append(m.Events, event)
	return m.Err
}

func (m *MockEventPublisher) Types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]domain.EventType, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
