package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Store defines the interface for persisting events.
// This is a subset of runstore.Store to avoid circular dependencies.
type Store interface {
	Append(ctx context.Context, runID, eventType string, payload []byte) error
}

// Handler processes an Event; return error to signal failure.
type Handler func(Event) error

// Bus is a simple synchronous pub/sub event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	store       Store // optional event store for persistence
}

func NewBus() *Bus { return &Bus{subscribers: map[string][]Handler{}} }

// NewBusWithStore creates a bus that persists events to the store.
func NewBusWithStore(store Store) *Bus {
	return &Bus{
		subscribers: map[string][]Handler{},
		store:       store,
	}
}

// Subscribe registers a handler for a given event name.
func (b *Bus) Subscribe(event string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], h)
	b.mu.Unlock()
}

// SubscribeAll registers a handler for every run lifecycle event.
func (b *Bus) SubscribeAll(h Handler) {
	for _, name := range []string{
		EventRunStarted, EventJobStarted, EventStepStarted,
		EventStepFinished, EventStepSkipped, EventJobFinished, EventRunFinished,
	} {
		b.Subscribe(name, h)
	}
}

// Publish delivers an event to all handlers synchronously. If a store is
// configured the event is persisted first; a failing store never fails the
// run itself.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.store != nil {
		payload, err := json.Marshal(e)
		if err != nil {
			payload = []byte("{}")
		}
		if err := b.store.Append(ctx, e.GetRunID(), e.Name(), payload); err != nil {
			slog.Warn("event store append failed", "event", e.Name(), "error", err.Error())
		}
	}

	b.mu.RLock()
	hs := append([]Handler(nil), b.subscribers[e.Name()]...)
	b.mu.RUnlock()
	for _, h := range hs {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
