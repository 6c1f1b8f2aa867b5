package dialog

// Package dialog provides the profile-dialog signal bus: a no-payload
// broadcast channel that decouples the menu item which requests the
// dialog from the shell that owns the dialog lifecycle.

import "sync"

// Bus is a single-event broadcast channel. Publish delivers to all
// current subscribers synchronously, in subscription order. There is
// no queueing and no replay: a subscriber added after a publish does
// not see that publish.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	order   []uint64
	handler map[uint64]func()
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handler: make(map[uint64]func())}
}

// Subscription identifies one subscriber. Unsubscribe is idempotent.
type Subscription struct {
	bus *Bus
	id  uint64
}

// Subscribe registers a handler and returns its subscription handle.
// A nil handler is ignored and yields an inert subscription.
func (b *Bus) Subscribe(handler func()) *Subscription {
	if handler == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.order = append(b.order, id)
	b.handler[id] = handler
	return &Subscription{bus: b, id: id}
}

// Publish invokes every current handler once, in subscription order.
// Handlers run outside the bus lock so they may subscribe or
// unsubscribe without deadlocking; such changes take effect on the
// next publish. A publish with zero subscribers is a no-op.
func (b *Bus) Publish() {
	b.mu.Lock()
	handlers := make([]func(), 0, len(b.order))
	for _, id := range b.order {
		if h, ok := b.handler[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

// Unsubscribe stops future delivery. Safe to call more than once and
// safe on an inert subscription.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handler[s.id]; !ok {
		return
	}
	delete(b.handler, s.id)
	for i, id := range b.order {
		if id == s.id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Len reports the current number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handler)
}
