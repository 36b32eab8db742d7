package core

import (
	"context"
	"errors"
	"sync"
)

type slot struct {
	seq uint64
	msg Message
}

// Bus is a fixed-capacity fan-out of Messages.
//
// Every publish lands in a ring of capacity slots. Subscribers keep their own
// cursor into the ring. Once one falls more than capacity messages behind, its
// next receive reports a *LagError and its cursor jumps to the oldest retained
// message.
type Bus struct {
	mu          sync.Mutex
	ring        []slot
	next        uint64 // sequence of the next publish
	subscribers int
	closed      bool
	notify      chan struct{} // closed and replaced on every publish
}

// NewBus creates a bus retaining up to capacity messages.
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	return &Bus{
		ring:   make([]slot, capacity),
		notify: make(chan struct{}),
	}
}

// Publish appends msg and wakes waiting subscribers. It never blocks on them.
// The return value is the number of subscribers at publish time; zero is not
// an error.
func (b *Bus) Publish(msg Message) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	b.ring[b.next%uint64(len(b.ring))] = slot{seq: b.next, msg: msg}
	b.next++

	close(b.notify)
	b.notify = make(chan struct{})
	return b.subscribers
}

// Subscribe returns a subscription positioned at the current tail: it sees
// only messages published after this call.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers++
	return &Subscription{bus: b, cursor: b.next}
}

// Subscribers returns the number of open subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribers
}

// Close stops accepting publishes. Subscribers drain what is retained and then
// receive ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.notify)
}

// Subscription is one subscriber's view of the bus. It must be used from a
// single goroutine.
type Subscription struct {
	bus    *Bus
	cursor uint64
	done   bool
}

// TryRecv returns the next message without blocking. It returns ErrEmpty when
// nothing is pending, *LagError after an overflow, and ErrBusClosed once the
// bus is closed and drained.
func (s *Subscription) TryRecv() (Message, error) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	msg, _, err := s.recvLocked()
	return msg, err
}

// Recv blocks until a message, lag, bus closure or ctx cancellation.
func (s *Subscription) Recv(ctx context.Context) (Message, error) {
	for {
		s.bus.mu.Lock()
		msg, wait, err := s.recvLocked()
		s.bus.mu.Unlock()

		if !errors.Is(err, ErrEmpty) {
			return msg, err
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.done {
		return
	}
	s.done = true
	s.bus.subscribers--
}

// recvLocked must be called with the bus lock held. On ErrEmpty it also
// returns the channel that the next publish (or Close) will close.
func (s *Subscription) recvLocked() (Message, <-chan struct{}, error) {
	b := s.bus

	if s.cursor == b.next {
		if b.closed {
			return Message{}, nil, ErrBusClosed
		}
		return Message{}, b.notify, ErrEmpty
	}

	capacity := uint64(len(b.ring))
	if b.next-s.cursor > capacity {
		oldest := b.next - capacity
		missed := oldest - s.cursor
		s.cursor = oldest
		return Message{}, nil, &LagError{Missed: missed}
	}

	sl := b.ring[s.cursor%capacity]
	s.cursor++
	return sl.msg, nil, nil
}
