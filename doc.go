// Package stablequeue provides a job/result queue that lets any number of workers
// complete jobs out of order while consumers receive results in submission order.
//
// Flow
//   - PushJob(payload): the job gets the next sequence number (1, 2, 3, ...) and
//     is queued for workers.
//   - PopJob(): a worker waits for any queued job and receives a *Handle carrying
//     the payload and its sequence number.
//   - Handle.Commit(result): the worker publishes the result under that sequence
//     number and wakes waiting consumers.
//   - PopResult(): the Kth call returns the result of the Kth pushed job, waiting
//     until that particular result is committed.
//
// Ordering
// Sequence numbers follow PushJob call order and result positions follow
// PopResult call order. Both are taken atomically, so with N pushes the numbers
// are exactly 1..N. Completion order does not affect delivery order: a consumer
// waiting for position 2 is not released by the commit of job 3.
//
// Blocking
// PopJob and PopResult park the calling goroutine; there is no timeout,
// cancellation or close signal. A Handle that is never committed stalls its
// position and every position after it. Callers needing liveness guarantees
// should apply them around these calls.
//
// Defaults
// Unless overridden, a newly created queue is unbounded (PushJob never blocks)
// and records no metrics. See WithCapacity and WithMetrics.
//
// Handles
// Clone returns another *Queue sharing the same jobs, results and counters, for
// code that wants a distinct endpoint per producer, worker or consumer.
package stablequeue
