package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/ygrebnov/stablequeue"
	"github.com/ygrebnov/stablequeue/metrics"
)

// payload is a bench job; a nil value tells a worker to exit.
type payload = *int

// report summarizes a finished run.
type report struct {
	Results  int
	Elapsed  time.Duration
	QueueID  string
	Stats    stablequeue.Stats
	Snapshot metrics.Snapshot
}

// run executes s against a fresh queue. It returns an error on the first result
// delivered out of submission order.
func run(s Scenario, p *metrics.BasicProvider) (report, error) {
	return runWith(s, p, func(v int) int { return v * 10 })
}

// runWith is run with the worker computation supplied by the caller.
// The report's Stats and Snapshot are taken once every batch job has been pushed
// and before the stop jobs are queued, so stop jobs never show up as in flight.
// On error the report still carries them, together with QueueID.
func runWith(s Scenario, p *metrics.BasicProvider, work func(int) int) (report, error) {
	opts := []stablequeue.Option{stablequeue.WithMetrics(p)}
	if s.Capacity > 0 {
		opts = append(opts, stablequeue.WithCapacity(s.Capacity))
	}
	q, err := stablequeue.New[payload, int](opts...)
	if err != nil {
		return report{}, err
	}

	var wg sync.WaitGroup
	wg.Add(s.Workers)
	for range s.Workers {
		w := q.Clone()
		go func() {
			defer wg.Done()
			for {
				h := w.PopJob()
				v := h.Payload()
				if v == nil {
					return
				}
				if s.WorkDelay > 0 {
					time.Sleep(s.WorkDelay)
				}
				_ = h.Commit(work(*v))
			}
		}()
	}

	r := report{QueueID: q.ID().String()}
	// finish captures the report and stops the workers. The feeder must be done:
	// with a bounded queue it may be parked in PushJob until workers pop.
	finish := func(fed <-chan struct{}) {
		<-fed
		r.Stats = q.Stats()
		r.Snapshot = p.Snapshot()
		for range s.Workers {
			q.PushJob(nil)
		}
		wg.Wait()
	}

	start := time.Now()
	for b := range s.Batches {
		// with a bounded queue a batch larger than the capacity must be fed concurrently
		fed := make(chan struct{})
		go func() {
			defer close(fed)
			for i := range s.BatchSize {
				v := i * 2
				q.PushJob(&v)
			}
		}()
		for i := range s.BatchSize {
			if got, want := q.PopResult(), i*2*10; got != want {
				finish(fed)
				return r, fmt.Errorf("batch %d position %d: got %d, want %d", b, i, got, want)
			}
		}
		if b == s.Batches-1 {
			r.Elapsed = time.Since(start)
			r.Results = s.Batches * s.BatchSize
			finish(fed)
		} else {
			<-fed
		}
	}
	return r, nil
}

func (r report) print(printf func(format string, args ...any)) {
	printf("queue %s: %d results in order in %s (%.0f results/s)",
		r.QueueID, r.Results, r.Elapsed, float64(r.Results)/r.Elapsed.Seconds())
	printf("stats: pushed=%d popped=%d committed=%d delivered=%d queued=%d buffered=%d",
		r.Stats.Pushed, r.Stats.Popped, r.Stats.Committed, r.Stats.Delivered, r.Stats.Queued, r.Stats.Buffered)
	for _, name := range r.Snapshot.Names() {
		if v, ok := r.Snapshot.Counters[name]; ok {
			printf("%s %d", name, v)
			continue
		}
		if v, ok := r.Snapshot.UpDownCounters[name]; ok {
			printf("%s %d", name, v)
			continue
		}
		h := r.Snapshot.Histograms[name]
		printf("%s count=%d mean=%.6f max=%.6f", name, h.Count, h.Mean, h.Max)
	}
}
