// Package events provides a publish-subscribe event bus using Go channels.
package events

import (
	"sync"

	"github.com/agentops/agentops-go/internal/shared"
)

// Handler is a function that handles events.
type Handler func(event shared.Event)

// Bus fans events out to channel subscribers and registered handlers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[shared.EventType][]chan shared.Event
	handlers    map[shared.EventType][]Handler
	bufferSize  int
	closed      bool
}

// Option configures the Bus.
type Option func(*Bus)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		b.bufferSize = size
	}
}

// New creates a new Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[shared.EventType][]chan shared.Event),
		handlers:    make(map[shared.EventType][]Handler),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe creates a channel receiving events of the given type.
func (b *Bus) Subscribe(eventType shared.EventType) <-chan shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan shared.Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a channel receiving every event.
func (b *Bus) SubscribeAll() <-chan shared.Event {
	return b.Subscribe("*")
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(eventType shared.EventType, ch <-chan shared.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if (<-chan shared.Event)(sub) == ch {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// On registers a handler for events of the given type.
func (b *Bus) On(eventType shared.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all subscribers and handlers. Channel sends are
// non-blocking; a full subscriber drops the event rather than stalling the
// publisher.
func (b *Bus) Emit(event shared.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = shared.Now()
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range b.subscribers["*"] {
		select {
		case ch <- event:
		default:
		}
	}

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.handlers["*"] {
		go handler(event)
	}
}

// Close closes all subscriber channels and stops the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[shared.EventType][]chan shared.Event)
	b.handlers = make(map[shared.EventType][]Handler)
}

// ============================================================================
// Helper Functions
// ============================================================================

// EmitRunStarted emits a run started event.
func (b *Bus) EmitRunStarted(runID string, agent shared.AgentKind, taskID string) {
	b.Emit(shared.Event{
		Type: shared.EventRunStarted,
		Payload: map[string]interface{}{
			"runId":  runID,
			"agent":  string(agent),
			"taskId": taskID,
		},
	})
}

// EmitRunCompleted emits a run completed event.
func (b *Bus) EmitRunCompleted(runID string, agent shared.AgentKind, duration int64) {
	b.Emit(shared.Event{
		Type: shared.EventRunCompleted,
		Payload: map[string]interface{}{
			"runId":    runID,
			"agent":    string(agent),
			"duration": duration,
		},
	})
}

// EmitRunFailed emits a run failed event.
func (b *Bus) EmitRunFailed(runID string, agent shared.AgentKind, errMsg string) {
	b.Emit(shared.Event{
		Type: shared.EventRunFailed,
		Payload: map[string]interface{}{
			"runId": runID,
			"agent": string(agent),
			"error": errMsg,
		},
	})
}

// EmitQueueNormalized emits a queue normalized event.
func (b *Bus) EmitQueueNormalized(input, kept int) {
	b.Emit(shared.Event{
		Type: shared.EventQueueNormalized,
		Payload: map[string]interface{}{
			"input": input,
			"kept":  kept,
		},
	})
}

// EmitRecoveryStarted emits a recovery started event.
func (b *Bus) EmitRecoveryStarted(agentID string) {
	b.Emit(shared.Event{
		Type: shared.EventRecoveryStarted,
		Payload: map[string]interface{}{
			"agentId": agentID,
		},
	})
}

// EmitRecoverySucceeded emits a recovery succeeded event.
func (b *Bus) EmitRecoverySucceeded(agentID string, attempts int) {
	b.Emit(shared.Event{
		Type: shared.EventRecoverySucceeded,
		Payload: map[string]interface{}{
			"agentId":  agentID,
			"attempts": attempts,
		},
	})
}

// EmitRecoveryFailed emits a recovery failed event.
func (b *Bus) EmitRecoveryFailed(agentID string, attempts int, errMsg string) {
	b.Emit(shared.Event{
		Type: shared.EventRecoveryFailed,
		Payload: map[string]interface{}{
			"agentId":  agentID,
			"attempts": attempts,
			"error":    errMsg,
		},
	})
}
