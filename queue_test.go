package stablequeue_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/stablequeue"
	"github.com/ygrebnov/stablequeue/metrics"
)

// job is a test payload; stop tells a worker loop to exit without committing.
type job struct {
	v    int
	stop bool
}

func newQueue[J, R any](t testing.TB, opts ...stablequeue.Option) *stablequeue.Queue[J, R] {
	t.Helper()
	q, err := stablequeue.New[J, R](opts...)
	require.NoError(t, err)
	return q
}

// startWorkers runs n worker loops committing fn(payload) until they pop a stop job.
// The returned function pushes the stop jobs and waits for the loops to exit.
func startWorkers(q *stablequeue.Queue[job, int], n int, fn func(int) int) (stop func()) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		w := q.Clone()
		go func() {
			defer wg.Done()
			for {
				h := w.PopJob()
				if h.Payload().stop {
					return
				}
				_ = h.Commit(fn(h.Payload().v))
			}
		}()
	}
	return func() {
		for i := 0; i < n; i++ {
			q.PushJob(job{stop: true})
		}
		wg.Wait()
	}
}

func popResultAsync[J, R any](q *stablequeue.Queue[J, R]) <-chan R {
	ch := make(chan R, 1)
	go func() { ch <- q.PopResult() }()
	return ch
}

func TestQueue_OutOfOrderCommitsDeliverInPushOrder(t *testing.T) {
	q := newQueue[int, int](t)

	q.PushJob(1)
	q.PushJob(2)
	q.PushJob(3)

	q0 := q.Clone()
	go func() {
		// pop first, commit last
		h := q0.PopJob()
		time.Sleep(100 * time.Millisecond)
		_ = h.Commit(h.Payload() * 10)
	}()

	q1 := q.Clone()
	go func() {
		// pop second, commit second
		time.Sleep(25 * time.Millisecond)
		h := q1.PopJob()
		time.Sleep(50 * time.Millisecond)
		_ = h.Commit(h.Payload() * 10)
	}()

	q2 := q.Clone()
	go func() {
		// pop last, commit first
		time.Sleep(50 * time.Millisecond)
		h := q2.PopJob()
		_ = h.Commit(h.Payload() * 10)
	}()

	require.Equal(t, 10, q.PopResult())
	require.Equal(t, 20, q.PopResult())
	require.Equal(t, 30, q.PopResult())
}

func TestQueue_ExplicitReverseCommitOrder(t *testing.T) {
	q := newQueue[int, int](t)
	for i := 1; i <= 3; i++ {
		q.PushJob(i)
	}
	handles := map[int]*stablequeue.Handle[int, int]{}
	for i := 0; i < 3; i++ {
		h := q.PopJob()
		handles[h.Payload()] = h
	}

	// job 3 first, then 1, then 2
	for _, p := range []int{3, 1, 2} {
		require.NoError(t, handles[p].Commit(p*10))
	}

	require.Equal(t, 10, q.PopResult())
	require.Equal(t, 20, q.PopResult())
	require.Equal(t, 30, q.PopResult())
}

func TestQueue_ConcurrentPushesGetOneToN(t *testing.T) {
	q := newQueue[int, int](t)
	const producers, perProducer = 16, 64
	n := producers * perProducer

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		pq := q.Clone()
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				pq.PushJob(i)
			}
		}()
	}
	wg.Wait()

	seqs := make([]int, 0, n)
	for i := 0; i < n; i++ {
		seqs = append(seqs, int(q.PopJob().Seq()))
	}
	sort.Ints(seqs)
	for i, s := range seqs {
		require.Equal(t, i+1, s)
	}
	require.Equal(t, uint64(n), q.Stats().Pushed)
}

func TestQueue_PopResultBlocksUntilCommit(t *testing.T) {
	q := newQueue[int, int](t)
	q.PushJob(7)

	got := popResultAsync(q)

	const delay = 80 * time.Millisecond
	committedAt := make(chan time.Time, 1)
	go func() {
		h := q.PopJob()
		time.Sleep(delay)
		committedAt <- time.Now()
		_ = h.Commit(h.Payload() * 10)
	}()

	select {
	case v := <-got:
		t.Fatalf("PopResult returned %d before the commit", v)
	case <-time.After(delay / 2):
	}

	select {
	case v := <-got:
		require.Equal(t, 70, v)
		require.False(t, time.Now().Before(<-committedAt))
	case <-time.After(2 * time.Second):
		t.Fatalf("PopResult did not return after commit")
	}
}

func TestQueue_NoCrossTalkBetweenPositions(t *testing.T) {
	q := newQueue[string, string](t)
	q.PushJob("a")
	q.PushJob("b")

	h1 := q.PopJob()
	h2 := q.PopJob()
	if h1.Seq() != 1 {
		h1, h2 = h2, h1
	}
	require.Equal(t, "a", h1.Payload())
	require.Equal(t, "b", h2.Payload())

	first := popResultAsync(q)

	// the result for position 2 must not release the consumer waiting for position 1
	require.NoError(t, h2.Commit("B"))
	select {
	case v := <-first:
		t.Fatalf("consumer of position 1 received %q", v)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, h1.Commit("A"))
	select {
	case v := <-first:
		require.Equal(t, "A", v)
	case <-time.After(time.Second):
		t.Fatalf("consumer of position 1 was not released")
	}
	require.Equal(t, "B", q.PopResult())
}

func TestQueue_ConcurrentConsumersGetDistinctPositions(t *testing.T) {
	q := newQueue[job, int](t)
	stop := startWorkers(q, 8, func(v int) int { return v * 10 })
	defer stop()

	const m = 64
	for i := 1; i <= m; i++ {
		q.PushJob(job{v: i})
	}

	results := make(chan int, m)
	var wg sync.WaitGroup
	wg.Add(m)
	for i := 0; i < m; i++ {
		c := q.Clone()
		go func() {
			defer wg.Done()
			results <- c.PopResult()
		}()
	}
	wg.Wait()
	close(results)

	got := make([]int, 0, m)
	for v := range results {
		got = append(got, v)
	}
	sort.Ints(got)
	require.Len(t, got, m)
	for i, v := range got {
		require.Equal(t, (i+1)*10, v)
	}

	s := q.Stats()
	require.Equal(t, uint64(m), s.Claimed)
	require.Equal(t, uint64(m), s.Delivered)
	require.Equal(t, 0, s.Buffered)
}

func TestQueue_EachConsumerReceivesItsClaimedPosition(t *testing.T) {
	q := newQueue[job, int](t)

	const m = 16
	for i := 1; i <= m; i++ {
		q.PushJob(job{v: i})
	}

	// Consumers are started one at a time and each is let claim its position
	// before the next starts, so consumer i waits for position i.
	results := make([]chan int, m+1)
	for pos := 1; pos <= m; pos++ {
		results[pos] = make(chan int, 1)
		c := q.Clone()
		ch := results[pos]
		go func() { ch <- c.PopResult() }()
		require.Eventually(t, func() bool { return q.Stats().Claimed == uint64(pos) },
			time.Second, time.Millisecond, "consumer %d did not claim a position", pos)
	}

	// commit in reverse submission order
	handles := make([]*stablequeue.Handle[job, int], 0, m)
	for i := 0; i < m; i++ {
		handles = append(handles, q.PopJob())
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Seq() > handles[j].Seq() })
	for _, h := range handles {
		require.NoError(t, h.Commit(h.Payload().v*10))
	}

	for pos := 1; pos <= m; pos++ {
		select {
		case v := <-results[pos]:
			require.Equal(t, pos*10, v, "consumer of position %d", pos)
		case <-time.After(2 * time.Second):
			t.Fatalf("consumer of position %d did not return", pos)
		}
	}
}

func TestQueue_ValueCopySharesState(t *testing.T) {
	q := newQueue[int, int](t)
	c := *q

	c.PushJob(4)
	h := q.PopJob()
	require.NoError(t, h.Commit(h.Payload()*2))
	require.Equal(t, 8, c.PopResult())
	require.Equal(t, q.ID(), c.ID())
}

func TestQueue_HundredWorkersBatches(t *testing.T) {
	q := newQueue[job, int](t)
	stop := startWorkers(q, 100, func(v int) int {
		time.Sleep(time.Millisecond)
		return v * 10
	})
	defer stop()

	const batchSize, batches = 50, 5
	for b := 0; b < batches; b++ {
		for i := 0; i < batchSize; i++ {
			q.PushJob(job{v: i * 2})
		}
		for i := 0; i < batchSize; i++ {
			require.Equal(t, i*2*10, q.PopResult(), "batch %d position %d", b, i)
		}
	}
}

func TestQueue_InterleavedProducersAndConsumers(t *testing.T) {
	q := newQueue[job, int](t)
	stop := startWorkers(q, 10, func(v int) int { return v })
	defer stop()

	const n = 500
	out := make([]int, 0, n)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			out = append(out, q.PopResult())
		}
	}()

	for i := 0; i < n; i++ {
		q.PushJob(job{v: i})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not receive all results")
	}
	for i, v := range out {
		require.Equal(t, i, v)
	}
}

func TestHandle_SecondCommitRejected(t *testing.T) {
	q := newQueue[int, int](t)
	q.PushJob(1)

	h := q.PopJob()
	require.Equal(t, uint64(1), h.Seq())
	require.NoError(t, h.Commit(100))

	err := h.Commit(200)
	require.ErrorIs(t, err, stablequeue.ErrAlreadyCommitted)

	require.Equal(t, 100, q.PopResult())
	require.Equal(t, uint64(1), q.Stats().Committed)
}

func TestQueue_CloneSharesState(t *testing.T) {
	q := newQueue[int, int](t)
	c := q.Clone()

	require.NotSame(t, q, c)
	require.Equal(t, q.ID(), c.ID())

	c.PushJob(5)
	h := q.PopJob()
	require.NoError(t, h.Commit(h.Payload()+1))
	require.Equal(t, 6, c.PopResult())

	other := newQueue[int, int](t)
	require.NotEqual(t, q.ID(), other.ID())
}

func TestQueue_StatsReportsDroppedHandle(t *testing.T) {
	q := newQueue[int, int](t)
	q.PushJob(1)
	q.PushJob(2)
	q.PushJob(3)

	_ = q.PopJob() // never committed
	h := q.PopJob()
	require.NoError(t, h.Commit(0))

	s := q.Stats()
	require.Equal(t, uint64(3), s.Pushed)
	require.Equal(t, uint64(2), s.Popped)
	require.Equal(t, uint64(1), s.Committed)
	require.Equal(t, uint64(1), s.InFlight())
	require.Equal(t, 1, s.Queued)
	require.Equal(t, 1, s.Buffered)
	require.Equal(t, uint64(0), s.Claimed)
}

func TestQueue_WithCapacityParksPushJob(t *testing.T) {
	q := newQueue[int, int](t, stablequeue.WithCapacity(1))
	q.PushJob(1)

	pushed := make(chan struct{})
	go func() {
		q.PushJob(2)
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatalf("PushJob returned while the jobs queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	h := q.PopJob()
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatalf("PushJob did not resume after PopJob")
	}
	require.NoError(t, h.Commit(h.Payload()))

	h = q.PopJob()
	require.NoError(t, h.Commit(h.Payload()))
	require.Equal(t, 1, q.PopResult())
	require.Equal(t, 2, q.PopResult())
}

func TestQueue_Metrics(t *testing.T) {
	p := metrics.NewBasicProvider()
	q := newQueue[int, int](t, stablequeue.WithMetrics(p))

	for i := 1; i <= 3; i++ {
		q.PushJob(i)
	}
	h1 := q.PopJob()
	h2 := q.PopJob()
	require.NoError(t, h1.Commit(h1.Payload()))

	s := p.Snapshot()
	require.Equal(t, int64(3), s.Counters[q.SeriesKey(stablequeue.MetricJobsPushed)])
	require.Equal(t, int64(2), s.Counters[q.SeriesKey(stablequeue.MetricJobsPopped)])
	require.Equal(t, int64(1), s.Counters[q.SeriesKey(stablequeue.MetricResultsCommitted)])
	require.Equal(t, int64(1), s.UpDownCounters[q.SeriesKey(stablequeue.MetricJobsInFlight)])
	require.Equal(t, int64(1), s.UpDownCounters[q.SeriesKey(stablequeue.MetricResultsBuffered)])

	got := popResultAsync(q)
	require.Equal(t, 1, <-got)

	got = popResultAsync(q)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, h2.Commit(h2.Payload()))
	require.Equal(t, 2, <-got)

	s = p.Snapshot()
	require.Equal(t, int64(2), s.Counters[q.SeriesKey(stablequeue.MetricResultsDelivered)])
	require.Equal(t, int64(0), s.UpDownCounters[q.SeriesKey(stablequeue.MetricResultsBuffered)])
	require.Equal(t, int64(0), s.UpDownCounters[q.SeriesKey(stablequeue.MetricJobsInFlight)])

	wait := s.Histograms[q.SeriesKey(stablequeue.MetricResultWaitSeconds)]
	require.GreaterOrEqual(t, wait.Count, int64(1))
	require.Greater(t, wait.Max, 0.0)

	cfg, ok := p.Describe(q.SeriesKey(stablequeue.MetricJobsPushed))
	require.True(t, ok)
	require.Equal(t, q.ID().String(), cfg.Attributes["queue"])
}

func TestQueue_MetricsSeparatePerQueue(t *testing.T) {
	p := metrics.NewBasicProvider()
	a := newQueue[int, int](t, stablequeue.WithMetrics(p))
	b := newQueue[int, int](t, stablequeue.WithMetrics(p))
	require.NotEqual(t, a.SeriesKey(stablequeue.MetricJobsPushed), b.SeriesKey(stablequeue.MetricJobsPushed))

	b.PushJob(1)
	b.PushJob(2)
	a.PushJob(3)

	s := p.Snapshot()
	require.Equal(t, int64(1), s.Counters[a.SeriesKey(stablequeue.MetricJobsPushed)])
	require.Equal(t, int64(2), s.Counters[b.SeriesKey(stablequeue.MetricJobsPushed)])

	for _, q := range []*stablequeue.Queue[int, int]{a, b} {
		cfg, ok := p.Describe(q.SeriesKey(stablequeue.MetricJobsPushed))
		require.True(t, ok)
		require.Equal(t, q.ID().String(), cfg.Attributes["queue"])
	}

	// clones share the queue, so they share its series
	require.Equal(t, a.SeriesKey(stablequeue.MetricJobsPushed), a.Clone().SeriesKey(stablequeue.MetricJobsPushed))
}
