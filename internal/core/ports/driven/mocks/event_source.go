package mocks

import (
	"context"
	"sync"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
)

// MockEventSource is a mock implementation of EventSource for testing
type MockEventSource struct {
	mu      sync.Mutex
	pending []domain.ChangeEvent
	acked   []domain.ChangeEvent

	PullErr error
	AckErr  error
}

// NewMockEventSource creates a new MockEventSource
func NewMockEventSource() *MockEventSource {
	return &MockEventSource{}
}

func (m *MockEventSource) Pull(ctx context.Context) ([]domain.ChangeEvent, error) {
	if m.PullErr != nil {
		return nil, m.PullErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.pending
	m.pending = nil
	return events, nil
}

func (m *MockEventSource) Ack(ctx context.Context, ev domain.ChangeEvent) error {
	if m.AckErr != nil {
		return m.AckErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, ev)
	return nil
}

// Helper methods for testing

func (m *MockEventSource) Enqueue(events ...domain.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, events...)
}

func (m *MockEventSource) Acked() []domain.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChangeEvent(nil), m.acked...)
}
