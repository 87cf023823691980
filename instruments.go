package stablequeue

import "github.com/ygrebnov/stablequeue/metrics"

// Instrument names reported to the configured metrics.Provider.
// Every instrument carries a static "queue" attribute with the queue ID, so
// queues sharing one provider report separate series. Queue.SeriesKey returns
// the key a metrics.BasicProvider snapshot uses for this queue's series.
const (
	MetricJobsPushed        = "stablequeue_jobs_pushed_total"
	MetricJobsPopped        = "stablequeue_jobs_popped_total"
	MetricResultsCommitted  = "stablequeue_results_committed_total"
	MetricResultsDelivered  = "stablequeue_results_delivered_total"
	MetricJobsInFlight      = "stablequeue_jobs_inflight"
	MetricResultsBuffered   = "stablequeue_results_buffered"
	MetricResultWaitSeconds = "stablequeue_result_wait_seconds"
)

type instruments struct {
	pushed    metrics.Counter
	popped    metrics.Counter
	committed metrics.Counter
	delivered metrics.Counter
	inflight  metrics.UpDownCounter
	buffered  metrics.UpDownCounter
	wait      metrics.Histogram
}

func queueAttributes(queueID string) map[string]string {
	return map[string]string{"queue": queueID}
}

func newInstruments(p metrics.Provider, queueID string) instruments {
	attrs := metrics.WithAttributes(queueAttributes(queueID))
	one := metrics.WithUnit("1")
	return instruments{
		pushed:    p.Counter(MetricJobsPushed, one, attrs, metrics.WithDescription("jobs assigned a sequence number")),
		popped:    p.Counter(MetricJobsPopped, one, attrs, metrics.WithDescription("jobs handed to a worker")),
		committed: p.Counter(MetricResultsCommitted, one, attrs, metrics.WithDescription("results committed by workers")),
		delivered: p.Counter(MetricResultsDelivered, one, attrs, metrics.WithDescription("results returned by PopResult")),
		inflight:  p.UpDownCounter(MetricJobsInFlight, one, attrs, metrics.WithDescription("jobs popped but not committed")),
		buffered:  p.UpDownCounter(MetricResultsBuffered, one, attrs, metrics.WithDescription("results committed but not delivered")),
		wait: p.Histogram(
			MetricResultWaitSeconds,
			metrics.WithUnit("s"),
			attrs,
			metrics.WithDescription("time PopResult spent parked waiting for its result"),
		),
	}
}
