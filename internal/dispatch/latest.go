package dispatch

import "sync"

// Latest is a single-slot cell: a Store overwrites any value the consumer has not
// taken yet.
type Latest[T any] struct {
	mu     sync.Mutex
	val    T
	fresh  bool
	closed bool
	ready  chan struct{}
}

// NewLatest creates an empty cell.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ready: make(chan struct{}, 1)}
}

// Store replaces the cell's value. It fails with ErrConsumerGone once the consumer
// has closed the cell.
func (l *Latest[T]) Store(v T) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrConsumerGone
	}
	l.val = v
	l.fresh = true
	select {
	case l.ready <- struct{}{}:
	default:
	}
	l.mu.Unlock()
	return nil
}

// TryTake returns the value stored since the last take, if there is one.
func (l *Latest[T]) TryTake() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.fresh {
		var zero T
		return zero, false
	}
	l.fresh = false
	// The value is consumed, so its wake-up is too.
	select {
	case <-l.ready:
	default:
	}
	return l.val, true
}

// Ready receives a value while a stored value is waiting to be taken.
func (l *Latest[T]) Ready() <-chan struct{} {
	return l.ready
}

// Close is called by the consumer when it stops.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.fresh = false
	l.mu.Unlock()
}
