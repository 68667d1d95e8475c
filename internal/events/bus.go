// Package events provides a frame-scoped, in-process broadcast. Every
// published event is delivered at most once to each subscriber and is
// forgotten after two frames.
package events

import (
	"slices"
	"sync"
)

// Subscription is a polled mailbox. An event stays drainable during the
// frame it was published in and the next one.
type Subscription[T any] struct {
	name    string
	bus     *Bus[T]
	current []T
	prev    []T
}

type handler[T any] struct {
	name string
	fn   func(T)
}

// Bus fans events out to subscriptions and synchronous handlers.
type Bus[T any] struct {
	mu       sync.Mutex
	subs     []*Subscription[T]
	handlers []handler[T]
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a named mailbox. Events published before the call are
// not visible to it.
func (b *Bus[T]) Subscribe(name string) *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription[T]{name: name, bus: b}
	b.subs = append(b.subs, s)

	return s
}

// Handle registers fn to be called from Publish for every event.
func (b *Bus[T]) Handle(name string, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, handler[T]{name: name, fn: fn})
}

// Publish delivers ev to every subscription and then calls each handler.
// Handlers run after the lock is released and may publish themselves.
func (b *Bus[T]) Publish(ev T) {
	b.mu.Lock()
	for _, s := range b.subs {
		s.current = append(s.current, ev)
	}
	handlers := slices.Clone(b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h.fn(ev)
	}
}

// EndFrame ages pending events by one frame and drops those that were not
// drained within their two-frame window. It returns the number dropped,
// counted per subscription.
func (b *Bus[T]) EndFrame() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for _, s := range b.subs {
		dropped += len(s.prev)
		s.prev = s.current
		s.current = nil
	}

	return dropped
}

// Subscribers returns the names of the registered subscriptions and handlers.
func (b *Bus[T]) Subscribers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.subs)+len(b.handlers))
	for _, s := range b.subs {
		names = append(names, s.name)
	}
	for _, h := range b.handlers {
		names = append(names, h.name)
	}

	return names
}

// Drain returns the pending events oldest first and clears them.
func (s *Subscription[T]) Drain() []T {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if len(s.prev) == 0 && len(s.current) == 0 {
		return nil
	}

	out := make([]T, 0, len(s.prev)+len(s.current))
	out = append(out, s.prev...)
	out = append(out, s.current...)
	s.prev = nil
	s.current = nil

	return out
}

// Pending reports how many events wait in the mailbox.
func (s *Subscription[T]) Pending() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	return len(s.prev) + len(s.current)
}

func (s *Subscription[T]) Name() string {
	return s.name
}

// Close unregisters the subscription and discards anything pending.
func (s *Subscription[T]) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = slices.DeleteFunc(b.subs, func(o *Subscription[T]) bool { return o == s })
	s.prev = nil
	s.current = nil
}
