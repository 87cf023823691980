package blocking

import "sync"

// Queue is a FIFO queue safe for concurrent use by any number of producers and consumers.
// The zero value is not usable; construct with New or NewBounded.
type Queue[T any] struct {
	s *state[T]
}

// state is shared by every handle cloned from the same queue.
type state[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond

	items []T
	head  int

	// capacity == 0 means unbounded.
	capacity int
}

// New creates an empty unbounded queue.
func New[T any]() *Queue[T] {
	return newQueue[T](0)
}

// NewBounded creates an empty queue holding at most capacity elements.
// Push parks while the queue is full. It panics if capacity <= 0.
func NewBounded[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("blocking: NewBounded requires capacity > 0")
	}
	return newQueue[T](capacity)
}

func newQueue[T any](capacity int) *Queue[T] {
	s := &state[T]{capacity: capacity}
	s.notEmpty.L = &s.mu
	s.notFull.L = &s.mu
	return &Queue[T]{s: s}
}

// Clone returns a new handle sharing the same underlying queue.
func (q *Queue[T]) Clone() *Queue[T] {
	return &Queue[T]{s: q.s}
}

// Push appends v to the tail of the queue.
// On an unbounded queue it never blocks; on a bounded queue it waits for free space.
func (q *Queue[T]) Push(v T) {
	s := q.s
	s.mu.Lock()
	for s.capacity > 0 && s.lenLocked() >= s.capacity {
		s.notFull.Wait()
	}
	s.items = append(s.items, v)
	s.mu.Unlock()
	s.notEmpty.Signal()
}

// Pop removes and returns the oldest element, waiting while the queue is empty.
func (q *Queue[T]) Pop() T {
	s := q.s
	s.mu.Lock()
	for s.lenLocked() == 0 {
		s.notEmpty.Wait()
	}
	v := s.takeLocked()
	s.mu.Unlock()
	if s.capacity > 0 {
		s.notFull.Signal()
	}
	return v
}

// TryPop removes and returns the oldest element if one is available.
// It never blocks; ok is false when the queue is empty.
func (q *Queue[T]) TryPop() (v T, ok bool) {
	s := q.s
	s.mu.Lock()
	if s.lenLocked() == 0 {
		s.mu.Unlock()
		return v, false
	}
	v = s.takeLocked()
	s.mu.Unlock()
	if s.capacity > 0 {
		s.notFull.Signal()
	}
	return v, true
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return q.s.lenLocked()
}

// Cap returns the configured capacity, or 0 for an unbounded queue.
func (q *Queue[T]) Cap() int { return q.s.capacity }

func (s *state[T]) lenLocked() int { return len(s.items) - s.head }

// takeLocked pops the head element. The backing slice is compacted once the
// consumed prefix outgrows the live part, so memory follows the queue depth.
func (s *state[T]) takeLocked() T {
	var zero T
	v := s.items[s.head]
	s.items[s.head] = zero
	s.head++
	switch {
	case s.head == len(s.items):
		s.items = s.items[:0]
		s.head = 0
	case s.head > 32 && s.head*2 >= len(s.items):
		n := copy(s.items, s.items[s.head:])
		clear(s.items[n:])
		s.items = s.items[:n]
		s.head = 0
	}
	return v
}
