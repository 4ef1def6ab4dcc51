package worker

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Governor is a counting admission gate. Callers take a permit with
// TryAcquire before handing work to a pool and the work gives it back with
// Release when it finishes, so at most Capacity units are in flight.
type Governor struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
}

// NewGovernor creates a governor with the given number of permits.
// Fewer than one permit is raised to one.
func NewGovernor(permits int) *Governor {
	if permits < 1 {
		permits = 1
	}
	return &Governor{
		sem:      semaphore.NewWeighted(int64(permits)),
		capacity: permits,
	}
}

// TryAcquire takes a permit if one is free. It never blocks.
func (g *Governor) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// Release returns a permit taken by TryAcquire.
func (g *Governor) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// InFlight returns the number of permits currently held.
func (g *Governor) InFlight() int {
	return int(g.inFlight.Load())
}

// Capacity returns the total number of permits.
func (g *Governor) Capacity() int {
	return g.capacity
}
