package stablequeue

import "sync/atomic"

// sequence hands out 1-based, strictly increasing numbers.
// next is linearizable: the Nth call, across all goroutines, returns N.
type sequence struct {
	n atomic.Uint64
}

func (s *sequence) next() uint64 { return s.n.Add(1) }

// last returns the most recently issued number, 0 if none.
func (s *sequence) last() uint64 { return s.n.Load() }
