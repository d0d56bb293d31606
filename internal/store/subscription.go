package store

import "sync"

// Subscription is a live feed of collection snapshots shared by every store
// backend. Each element on Updates is a complete snapshot; consumers replace
// their state wholesale rather than merging deltas.
//
// Delivery is coalescing: the channel holds at most one pending snapshot and
// a newer one replaces an unconsumed older one. A slow consumer therefore
// never blocks a mutator, and always converges on the latest state — exactly
// the at-least-once semantics the upstream stores provide.
type Subscription[T any] struct {
	mu      sync.Mutex
	updates chan []T
	closed  bool
	stop    func()
}

// NewSubscription builds a subscription for store backends. stop, if
// non-nil, runs once on Unsubscribe (detach from fan-out lists, cancel
// listener contexts, and so on).
func NewSubscription[T any](stop func()) *Subscription[T] {
	return &Subscription[T]{
		updates: make(chan []T, 1),
		stop:    stop,
	}
}

// Updates returns the snapshot channel. It is closed by Unsubscribe, so a
// receive loop terminates deterministically when the subscription ends.
func (s *Subscription[T]) Updates() <-chan []T {
	return s.updates
}

// Publish hands a snapshot to the consumer without ever blocking.
// If the previous snapshot has not been consumed yet it is discarded —
// latest wins. Publishing after Unsubscribe is a no-op.
func (s *Subscription[T]) Publish(snapshot []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- snapshot:
	default:
		// Drop the stale pending snapshot, then the send cannot block:
		// the lock excludes concurrent publishers and the buffer is 1.
		select {
		case <-s.updates:
		default:
		}
		s.updates <- snapshot
	}
}

// Unsubscribe ends the subscription and closes the updates channel.
// It is idempotent and safe to call from any goroutine, including a
// deferred teardown racing a final Publish.
func (s *Subscription[T]) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.updates)
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}
}
