package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrPoolStopped is returned by Submit once Shutdown has begun.
var ErrPoolStopped = errors.New("worker pool is stopped")

// PoolConfig holds configuration options for the worker pool
type PoolConfig struct {
	// Name identifies the pool in logs
	Name string

	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int

	// QueueSize is the capacity of the pool's job queue
	QueueSize int

	// JobTimeout bounds a single job's execution. Zero means no bound.
	JobTimeout time.Duration
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Name:        "default",
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Pool manages a fixed set of worker goroutines draining a bounded queue.
// Submit never blocks: when the queue is full it returns ErrQueueFull and the
// caller decides what to do with the rejected job.
type Pool struct {
	queue       *Queue
	workerCount int
	jobTimeout  time.Duration

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is the parent of every job context; cancelling it aborts running jobs
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once

	logger *slog.Logger

	// errorHandler is called when a job fails or panics.
	// If nil, errors are only logged
	errorHandler func(job Job, err error)
}

// NewPool creates a new worker pool with the specified configuration
func NewPool(config PoolConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Name == "" {
		config.Name = "default"
	}
	logger = logger.With(slog.String("component", "worker_pool"), slog.String("pool", config.Name))

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		queue:       NewQueue(config.QueueSize, logger),
		workerCount: workerCount,
		jobTimeout:  config.JobTimeout,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler sets a handler for job failures. It must be called before Start.
func (p *Pool) SetErrorHandler(handler func(job Job, err error)) {
	p.errorHandler = handler
}

// Start launches the worker goroutines. Calling Start more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool", "worker_count", p.workerCount, "queue_size", p.queue.Cap())
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Submit hands a job to the pool without blocking.
func (p *Pool) Submit(job Job) error {
	if err := p.queue.Enqueue(job); err != nil {
		if errors.Is(err, ErrQueueClosed) {
			return ErrPoolStopped
		}
		return err
	}
	return nil
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. If ctx expires first, running jobs are cancelled, the remaining
// queue is drained without execution and ctx.Err() is returned. Drained jobs
// implementing Canceller have Cancel called.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.queue.Close()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Info("worker pool stopped")
		case <-ctx.Done():
			p.logger.Warn("worker pool shutdown timed out, cancelling running jobs",
				"pending_jobs", p.queue.Len())
			p.cancel()
			<-done
			err = ctx.Err()
		}
		p.cancel()

		// Jobs left behind when no worker was ever started.
		for job := range p.queue.Channel() {
			p.discard(job)
		}
	})
	return err
}

// Stop shuts the pool down, waiting for every queued job to complete.
func (p *Pool) Stop() {
	_ = p.Shutdown(context.Background())
}

// Pending returns the number of jobs waiting in the queue.
func (p *Pool) Pending() int {
	return p.queue.Len()
}

// worker processes jobs from the queue until it is closed and drained
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for job := range p.queue.Channel() {
		if p.ctx.Err() != nil {
			p.logger.Debug("pool cancelled, discarding job",
				"worker_id", id,
				"job_id", job.ID(),
				"job_type", job.Type())
			p.discard(job)
			continue
		}
		p.processJob(job, id)
	}

	p.logger.Debug("job queue closed, stopping worker", "worker_id", id)
}

// processJob handles execution of a single job
func (p *Pool) processJob(job Job, workerID int) {
	log := p.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	ctx := p.ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := p.execute(ctx, job)
	if err != nil {
		log.Error("job execution failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		if p.errorHandler != nil {
			p.errorHandler(job, err)
		}
		return
	}

	log.Debug("job completed", "duration_ms", time.Since(start).Milliseconds())
}

// execute runs the job and converts a panic into an error
func (p *Pool) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(ctx)
}

// discard releases a job that will never run
func (p *Pool) discard(job Job) {
	c, ok := job.(Canceller)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job cancel hook panicked",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"panic", r)
		}
	}()
	c.Cancel()
}
