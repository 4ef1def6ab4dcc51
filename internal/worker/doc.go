// Package worker provides the background execution primitives shared by the
// deadline scheduler and the event bus: a bounded, non-blocking job queue, a
// fixed-size pool of goroutines draining it, and a counting admission
// governor that caps how many jobs may be in flight at once regardless of
// how much room the queue has left.
package worker
