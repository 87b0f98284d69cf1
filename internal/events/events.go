// Package events carries module lifecycle notifications from the activation
// controller to observers such as the journal and the API event stream.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"modulehost/internal/clock"
)

// Kind identifies a lifecycle transition.
type Kind string

const (
	ModuleLoaded      Kind = "module_loaded"
	ModuleLoadFailed  Kind = "module_load_failed"
	ModuleAdded       Kind = "module_added"
	ModuleActivated   Kind = "module_activated"
	ModuleDeactivated Kind = "module_deactivated"
	ActivationFailed  Kind = "activation_failed"
	DocumentClosed    Kind = "document_closed"
)

// Event is a single lifecycle notification.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Module  string    `json:"module,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Subscription represents an active event subscription.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  int
	bus *Bus
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

// DefaultHistory is the number of recent events kept by a Bus.
const DefaultHistory = 100

// Bus fans events out to subscribers and keeps a short history.
type Bus struct {
	clock clock.Clock

	mu       sync.RWMutex
	handlers map[int]Handler
	order    []int
	nextID   int

	histMu  sync.Mutex
	history []Event
	limit   int
}

// NewBus creates a bus stamping events with c.
func NewBus(c clock.Clock) *Bus {
	if c == nil {
		c = clock.Real{}
	}
	return &Bus{
		clock:    c,
		handlers: make(map[int]Handler),
		limit:    DefaultHistory,
	}
}

// Subscribe registers handler for all future events.
func (b *Bus) Subscribe(handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[b.nextID] = handler
	b.order = append(b.order, b.nextID)
	return &subscription{id: b.nextID, bus: b}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[id]; !ok {
		return
	}
	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish stamps and delivers an event of the given kind.
func (b *Bus) Publish(kind Kind, module, message string) Event {
	evt := Event{
		ID:      uuid.New(),
		Time:    b.clock.Now(),
		Kind:    kind,
		Module:  module,
		Message: message,
	}

	b.histMu.Lock()
	b.history = append(b.history, evt)
	if len(b.history) > b.limit {
		b.history = b.history[len(b.history)-b.limit:]
	}
	b.histMu.Unlock()

	// Copy handlers so subscribers may unsubscribe from within a handler.
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
	return evt
}

// Recent returns up to n of the most recent events, oldest first.
// n <= 0 returns the whole history.
func (b *Bus) Recent(n int) []Event {
	b.histMu.Lock()
	defer b.histMu.Unlock()
	start := 0
	if n > 0 && len(b.history) > n {
		start = len(b.history) - n
	}
	result := make([]Event, len(b.history)-start)
	copy(result, b.history[start:])
	return result
}
