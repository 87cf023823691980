// Package blocking provides a generic multi-producer, multi-consumer FIFO queue
// with blocking pop semantics.
//
// Push never blocks on a queue created with New: the queue is unbounded and applies
// no back-pressure. Pop parks the calling goroutine while the queue is empty and
// resumes as soon as an element is pushed. When several consumers are parked, each
// pushed element is handed to exactly one of them; which one is unspecified.
//
// Handles
// A Queue value is a handle to shared state. Clone returns a new handle backed by
// the same storage, so producers and consumers may each hold their own handle.
// Contents are never copied.
//
// Bounding
// NewBounded creates a queue whose Push parks while the queue is full. This is an
// opt-in alternative; the default queue stays unbounded.
package blocking
