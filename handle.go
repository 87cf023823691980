package stablequeue

import (
	"strconv"
	"sync/atomic"

	"github.com/ygrebnov/errorc"
)

// Handle is a job popped by a worker together with the right to commit its result.
//
// A Handle is single-use: the first Commit stores the result under the job's
// sequence number, later calls fail with ErrAlreadyCommitted and leave the stored
// result untouched. A Handle dropped without Commit leaves its sequence number
// in flight forever, so every PopResult that claims it, and every later one,
// blocks indefinitely.
type Handle[J, R any] struct {
	payload   J
	seq       uint64
	q         *shared[J, R]
	committed atomic.Bool
}

// Payload returns the job submitted with PushJob.
func (h *Handle[J, R]) Payload() J { return h.payload }

// Seq returns the job's 1-based sequence number.
func (h *Handle[J, R]) Seq() uint64 { return h.seq }

// Commit publishes the job's result and wakes every goroutine waiting in PopResult.
// It never blocks on consumers. It is safe to call from any goroutine.
func (h *Handle[J, R]) Commit(result R) error {
	if !h.committed.CompareAndSwap(false, true) {
		return errorc.With(
			ErrAlreadyCommitted,
			errorc.String("seq", strconv.FormatUint(h.seq, 10)),
			errorc.String("queue", h.q.id.String()),
		)
	}

	h.q.results.put(h.seq, result)
	h.q.committed.Add(1)
	h.q.m.committed.Add(1)
	h.q.m.inflight.Add(-1)
	h.q.m.buffered.Add(1)
	return nil
}
