package stablequeue

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ygrebnov/stablequeue/blocking"
	"github.com/ygrebnov/stablequeue/metrics"
)

// Queue is a handle to a sequenced job/result queue.
//
// Producers call PushJob, workers call PopJob and then Handle.Commit, and
// consumers call PopResult. Results come out of PopResult in the order their
// jobs went into PushJob, whatever order workers commit them in.
//
// All methods are safe for concurrent use. Clone returns another handle to the
// same state; the state is released when no handle or Handle references it.
type Queue[J, R any] struct {
	s *shared[J, R]
}

// entry is a job waiting for a worker.
type entry[J any] struct {
	seq     uint64
	payload J
}

// shared is the state every cloned Queue and every issued Handle point to.
type shared[J, R any] struct {
	id uuid.UUID

	jobs    *blocking.Queue[entry[J]]
	results *resultTable[R]

	// pushSeq numbers jobs; popSeq numbers result positions. They are independent.
	pushSeq sequence
	popSeq  sequence

	// observability counters backing Stats
	popped    atomic.Uint64
	committed atomic.Uint64
	delivered atomic.Uint64

	m instruments
}

// New creates an empty queue. Without options the jobs queue is unbounded and
// no metrics are recorded.
func New[J, R any](opts ...Option) (*Queue[J, R], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	s := &shared[J, R]{
		id:      uuid.New(),
		results: newResultTable[R](),
	}
	if cfg.Capacity > 0 {
		s.jobs = blocking.NewBounded[entry[J]](cfg.Capacity)
	} else {
		s.jobs = blocking.New[entry[J]]()
	}
	s.m = newInstruments(cfg.Metrics, s.id.String())

	return &Queue[J, R]{s: s}, nil
}

// Clone returns a new handle sharing jobs, results and sequence counters with q.
func (q *Queue[J, R]) Clone() *Queue[J, R] {
	return &Queue[J, R]{s: q.s}
}

// ID identifies the underlying queue. Clones report the same ID.
func (q *Queue[J, R]) ID() uuid.UUID { return q.s.id }

// SeriesKey returns the metrics.SeriesKey of this queue's instrument with the given name.
func (q *Queue[J, R]) SeriesKey(name string) string {
	return metrics.SeriesKey(name, queueAttributes(q.s.id.String()))
}

// PushJob assigns payload the next sequence number and makes it available to workers.
// It never blocks unless the queue was created WithCapacity and is full.
func (q *Queue[J, R]) PushJob(payload J) {
	seq := q.s.pushSeq.next()
	q.s.jobs.Push(entry[J]{seq: seq, payload: payload})
	q.s.m.pushed.Add(1)
}

// PopJob waits for a job and returns its Handle. Workers race freely for jobs;
// PopJob does not take part in result ordering.
func (q *Queue[J, R]) PopJob() *Handle[J, R] {
	e := q.s.jobs.Pop()
	q.s.popped.Add(1)
	q.s.m.popped.Add(1)
	q.s.m.inflight.Add(1)
	return &Handle[J, R]{payload: e.payload, seq: e.seq, q: q.s}
}

// PopResult returns the next result in submission order, waiting until it is committed.
//
// The Kth call across all goroutines claims sequence number K and returns the
// result of the Kth pushed job. The claim is taken before waiting, so concurrent
// consumers each wait for a distinct position. Calling PopResult more times than
// results will ever be committed blocks forever.
func (q *Queue[J, R]) PopResult() R {
	seq := q.s.popSeq.next()

	start := time.Now()
	r, parked := q.s.results.take(seq)
	if parked {
		q.s.m.wait.Record(time.Since(start).Seconds())
	}

	q.s.delivered.Add(1)
	q.s.m.delivered.Add(1)
	q.s.m.buffered.Add(-1)
	return r
}

// Stats is a point-in-time view of queue progress.
// Fields are read independently and may be mutually inconsistent under concurrent use.
type Stats struct {
	Pushed    uint64 // jobs assigned a sequence number
	Popped    uint64 // jobs handed to workers
	Committed uint64 // results committed
	Claimed   uint64 // PopResult calls that claimed a position
	Delivered uint64 // results returned by PopResult

	Queued   int // jobs waiting for a worker
	Buffered int // committed results not yet taken
}

// InFlight returns the number of jobs popped but not committed.
// A value that stays positive after workers go idle points to a dropped Handle.
func (s Stats) InFlight() uint64 {
	if s.Committed > s.Popped {
		return 0
	}
	return s.Popped - s.Committed
}

// Stats returns a snapshot of queue progress.
func (q *Queue[J, R]) Stats() Stats {
	return Stats{
		Pushed:    q.s.pushSeq.last(),
		Popped:    q.s.popped.Load(),
		Committed: q.s.committed.Load(),
		Claimed:   q.s.popSeq.last(),
		Delivered: q.s.delivered.Load(),
		Queued:    q.s.jobs.Len(),
		Buffered:  q.s.results.len(),
	}
}
