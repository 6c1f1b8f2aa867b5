package service

import (
	"context"
	"sync"
)

// subscriberSet fans one value out to every subscriber channel in
// subscription order. Channels are buffered; when a subscriber falls
// far behind, delivery blocks until it drains or the session context
// ends, preserving the one-value-per-emission guarantee instead of
// dropping.
type subscriberSet[T any] struct {
	mu     sync.Mutex
	nextID uint64
	order  []uint64
	chans  map[uint64]chan T
	closed bool
}

func newSubscriberSet[T any]() *subscriberSet[T] {
	return &subscriberSet[T]{chans: make(map[uint64]chan T)}
}

// subscribe registers a new channel and returns an idempotent
// unsubscribe func alongside it.
func (s *subscriberSet[T]) subscribe() (func(), <-chan T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 16)
	if s.closed {
		close(ch)
		return func() {}, ch
	}
	s.nextID++
	id := s.nextID
	s.order = append(s.order, id)
	s.chans[id] = ch

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.chans[id]; !ok {
			return
		}
		delete(s.chans, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		// The channel is left open: a delivery may be in flight and
		// closing under it would panic the sender. It is closed with
		// the rest of the set on session close.
	}
	return unsub, ch
}

// send delivers v to every current subscriber in subscription order.
func (s *subscriberSet[T]) send(ctx context.Context, v T) {
	s.mu.Lock()
	targets := make([]chan T, 0, len(s.order))
	for _, id := range s.order {
		if ch, ok := s.chans[id]; ok {
			targets = append(targets, ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- v:
		case <-ctx.Done():
			return
		}
	}
}

// closeAll closes every subscriber channel and rejects new ones.
func (s *subscriberSet[T]) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.chans {
		drainAndClose(ch)
	}
	s.chans = map[uint64]chan T{}
	s.order = nil
}

// drainAndClose removes buffered values before closing so receivers
// observe a closed channel promptly.
func drainAndClose[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}
