package worker

import (
	"context"

	"github.com/google/uuid"
)

// Job is a unit of work executed by a Pool.
type Job interface {
	// ID returns a unique identifier for log correlation.
	ID() uuid.UUID

	// Type returns a short name of the kind of work, e.g. "deadline_dispatch".
	Type() string

	// Execute performs the work. The context is cancelled when the pool is
	// shut down forcibly or the pool's job timeout elapses.
	Execute(ctx context.Context) error
}

// Canceller is implemented by jobs holding resources that must be released
// when the pool discards them without calling Execute, as happens to jobs
// still queued when Shutdown gives up waiting.
type Canceller interface {
	Cancel()
}

// funcJob adapts a function to the Job interface.
type funcJob struct {
	id       uuid.UUID
	typ      string
	fn       func(ctx context.Context) error
	onCancel func()
}

// NewJob wraps fn as a Job of the given type with a fresh ID.
func NewJob(typ string, fn func(ctx context.Context) error) Job {
	return &funcJob{id: uuid.New(), typ: typ, fn: fn}
}

// NewCancellableJob is NewJob with a hook the pool calls instead of fn when
// the job is discarded unexecuted.
func NewCancellableJob(typ string, fn func(ctx context.Context) error, onCancel func()) Job {
	return &funcJob{id: uuid.New(), typ: typ, fn: fn, onCancel: onCancel}
}

func (j *funcJob) ID() uuid.UUID                     { return j.id }
func (j *funcJob) Type() string                      { return j.typ }
func (j *funcJob) Execute(ctx context.Context) error { return j.fn(ctx) }

// Cancel implements Canceller.
func (j *funcJob) Cancel() {
	if j.onCancel != nil {
		j.onCancel()
	}
}
