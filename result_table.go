package stablequeue

import "sync"

// resultTable holds committed results keyed by sequence number until the
// consumer that claimed that number takes them.
//
// Semantics:
//   - put stores a result and wakes every waiter. Waiters re-check their own key,
//     so a result for sequence K never satisfies a waiter on K' != K.
//   - take removes and returns the result for a key, parking on the condition
//     variable until it is present. Each key is taken at most once because the
//     pop sequence never issues a number twice.
//
// Concurrency contracts:
//   - mu guards results; ready is used for wake-ups only.
//   - Entries for consumed keys never reappear: a Handle commits once and
//     sequence numbers are never reused.
type resultTable[R any] struct {
	mu      sync.Mutex
	ready   sync.Cond
	results map[uint64]R
}

func newResultTable[R any]() *resultTable[R] {
	t := &resultTable[R]{results: make(map[uint64]R)}
	t.ready.L = &t.mu
	return t
}

func (t *resultTable[R]) put(seq uint64, r R) {
	t.mu.Lock()
	t.results[seq] = r
	t.mu.Unlock()
	t.ready.Broadcast()
}

// take returns the result for seq, waiting until it is committed.
// parked reports whether the caller had to wait at least once.
func (t *resultTable[R]) take(seq uint64) (r R, parked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if v, ok := t.results[seq]; ok {
			delete(t.results, seq)
			return v, parked
		}
		parked = true
		t.ready.Wait()
	}
}

func (t *resultTable[R]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.results)
}
