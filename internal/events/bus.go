// Package events provides the synchronous publish/subscribe channel that
// sequences the clock, the command resolver and the neglect engine.
//
// Delivery is depth-first: a handler that publishes has its nested event fully
// delivered before the outer publish moves on to its next handler. A handler
// error stops delivery of the remaining handlers and is returned to the
// publisher.
package events

import "fmt"

// Handler receives an event of any kind.
type Handler func(Event) error

type subscription struct {
	id uint64
	fn Handler
}

// Bus is an in-process event channel keyed by Kind. It is not safe for
// concurrent use; the simulation is single-threaded.
type Bus struct {
	subs   map[Kind][]subscription
	all    []subscription
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers a typed handler for the kind of T. The returned cancel
// function removes exactly this handler; calling it more than once is a no-op.
func Subscribe[T Event](b *Bus, fn func(T) error) (cancel func()) {
	var zero T
	kind := zero.Kind()
	return b.subscribe(kind, func(e Event) error {
		ev, ok := e.(T)
		if !ok {
			return fmt.Errorf("events: %s delivered as %T", kind, e)
		}
		return fn(ev)
	})
}

// SubscribeAll registers an observer for every kind. Observers run after the
// kind-specific handlers of each event.
func (b *Bus) SubscribeAll(fn Handler) (cancel func()) {
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() { b.all = remove(b.all, id) }
}

func (b *Bus) subscribe(kind Kind, fn Handler) func() {
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})
	return func() { b.subs[kind] = remove(b.subs[kind], id) }
}

// Publish delivers ev to every handler currently subscribed to its kind, in
// subscription order, before returning.
func (b *Bus) Publish(ev Event) error {
	kind := ev.Kind()

	// Copy so handlers may subscribe or cancel while we iterate.
	handlers := append([]subscription(nil), b.subs[kind]...)
	handlers = append(handlers, b.all...)

	for _, s := range handlers {
		if err := s.fn(ev); err != nil {
			return fmt.Errorf("%s handler: %w", kind, err)
		}
	}
	return nil
}

// Handlers returns the number of handlers subscribed to kind.
func (b *Bus) Handlers(kind Kind) int {
	return len(b.subs[kind])
}

func remove(list []subscription, id uint64) []subscription {
	for i, s := range list {
		if s.id == id {
			out := make([]subscription, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	return list
}
