package testutil

import (
	"context"
	"sync"

	"github.com/erp/warehouse/internal/domain/shared"
)

// eventLog is a goroutine-safe list of events
type eventLog struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (l *eventLog) record(events ...shared.DomainEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, events...)
}

func (l *eventLog) snapshot() []shared.DomainEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]shared.DomainEvent(nil), l.events...)
}

// MockEventHandler is a bus subscriber that records what it receives
type MockEventHandler struct {
	log        eventLog
	eventTypes []string
}

// NewMockEventHandler subscribes to eventTypes, or to everything when empty
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (h *MockEventHandler) EventTypes() []string { return h.eventTypes }

// Handle implements shared.EventHandler
func (h *MockEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.log.record(event)
	return nil
}

// Handled returns the received events in order
func (h *MockEventHandler) Handled() []shared.DomainEvent { return h.log.snapshot() }

// HandledCount returns the number of received events
func (h *MockEventHandler) HandledCount() int { return len(h.log.snapshot()) }

// RecordingPublisher stands in for the bus where services publish directly
type RecordingPublisher struct {
	log eventLog
}

// Publish implements shared.EventPublisher
func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.log.record(events...)
	return nil
}

// Events returns the published events in order
func (p *RecordingPublisher) Events() []shared.DomainEvent { return p.log.snapshot() }

// Reset forgets everything published so far
func (p *RecordingPublisher) Reset() {
	p.log.mu.Lock()
	defer p.log.mu.Unlock()
	p.log.events = nil
}
