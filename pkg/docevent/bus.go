// Package docevent carries document lifecycle notifications — created,
// changed, deleted — through a single typed bus, and reconciles successive
// tracked-set snapshots into those notifications.
package docevent

import (
	"sync"

	"go.lsp.dev/uri"

	"github.com/albertocavalcante/virtdoc/pkg/snapshot"
)

// Kind tags an Event.
type Kind int

const (
	// Created means a document appeared in the tracked set.
	Created Kind = iota
	// Changed means a document is still tracked after a sync.
	Changed
	// Deleted means a document left the tracked set.
	Deleted
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one document lifecycle notification. Document is nil for
// Deleted events; the URI always identifies the document.
type Event struct {
	Kind     Kind
	URI      uri.URI
	Document *snapshot.Document
}

// Bus fans Events out to subscribers in registration order. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	mu       sync.Mutex
	handlers []*Subscription
	nextID   int
}

// Subscription is the handle returned by Subscribe. Closing it detaches the
// handler; Close is idempotent.
type Subscription struct {
	id  int
	bus *Bus
	fn  func(Event)
}

// Close detaches the subscription from its bus.
func (s *Subscription) Close() {
	if s.bus == nil {
		return
	}
	b := s.bus
	s.bus = nil
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.id == s.id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every subsequent event.
func (b *Bus) Subscribe(fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b, fn: fn}
	b.handlers = append(b.handlers, sub)
	return sub
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	handlers := make([]*Subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h.fn(e)
	}
}
