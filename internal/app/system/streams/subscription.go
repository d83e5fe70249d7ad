// internal/app/system/streams/subscription.go
package streams

import "sync"

// Subscription is a cancellable live view. C delivers snapshots; when the
// consumer falls behind, an undelivered snapshot is replaced by the newer
// one, or folded into it when the subscription has a merge function.
// After Close returns, nothing more is delivered and C is closed.
type Subscription[T any] struct {
	mu     sync.Mutex
	ch     chan T
	done   chan struct{}
	closed bool
	stop   func()
	merge  func(pending, next T) T
}

func newSubscription[T any](stop func()) *Subscription[T] {
	return &Subscription[T]{
		ch:   make(chan T, 1),
		done: make(chan struct{}),
		stop: stop,
	}
}

// C returns the snapshot channel.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Close ends the subscription. It is safe to call more than once and from
// any goroutine.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	select {
	case <-s.ch:
	default:
	}
	close(s.ch)
	s.mu.Unlock()

	if s.stop != nil {
		s.stop()
	}
}

// offer delivers v, replacing any snapshot the consumer has not read yet
// (or merging with it). It reports false once the subscription is closed.
func (s *Subscription[T]) offer(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- v:
			return true
		default:
		}
		select {
		case pending := <-s.ch:
			if s.merge != nil {
				v = s.merge(pending, v)
			}
		default:
		}
	}
}
