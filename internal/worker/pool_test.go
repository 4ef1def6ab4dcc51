package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 5, QueueSize: 10}, setupTestLogger())

	assert.Equal(t, 5, pool.workerCount)
	assert.Equal(t, 10, pool.queue.Cap())
	assert.Nil(t, pool.errorHandler)

	pool = NewPool(PoolConfig{WorkerCount: 0}, setupTestLogger())
	assert.Equal(t, 1, pool.workerCount)

	pool = NewPool(PoolConfig{WorkerCount: -5}, setupTestLogger())
	assert.Equal(t, 1, pool.workerCount)
}

func TestPool_ProcessesJobs(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 3, QueueSize: 20}, setupTestLogger())
	pool.Start()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(NewJob("count", func(ctx context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		})))
	}

	wg.Wait()
	pool.Stop()
	assert.Equal(t, int32(10), count.Load())
}

func TestPool_ErrorHandler(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 5}, setupTestLogger())

	jobErr := errors.New("boom")
	failed := make(chan error, 2)
	pool.SetErrorHandler(func(job Job, err error) {
		failed <- err
	})
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(NewJob("fail", func(ctx context.Context) error {
		return jobErr
	})))
	require.NoError(t, pool.Submit(NewJob("panic", func(ctx context.Context) error {
		panic("kaboom")
	})))

	for i := 0; i < 2; i++ {
		select {
		case err := <-failed:
			if i == 0 {
				assert.ErrorIs(t, err, jobErr)
			} else {
				assert.Contains(t, err.Error(), "kaboom")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("error handler was not called")
		}
	}
}

func TestPool_SubmitQueueFull(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 1}, setupTestLogger())

	// not started, so nothing drains the queue
	require.NoError(t, pool.Submit(noopJob()))
	assert.ErrorIs(t, pool.Submit(noopJob()), ErrQueueFull)
	assert.Equal(t, 1, pool.Pending())
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 10}, setupTestLogger())

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(NewJob("count", func(ctx context.Context) error {
			count.Add(1)
			return nil
		})))
	}
	pool.Start()

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(5), count.Load())
	assert.ErrorIs(t, pool.Submit(noopJob()), ErrPoolStopped)
}

func TestPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 10}, setupTestLogger())
	pool.Start()

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, pool.Submit(NewJob("block", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running job was not cancelled")
	}
}

func TestPool_ShutdownTimeoutCancelsQueuedJobs(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 10}, setupTestLogger())
	pool.Start()

	started := make(chan struct{})
	require.NoError(t, pool.Submit(NewJob("block", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})))
	<-started

	var executed, cancelled atomic.Int32
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(NewCancellableJob("queued", func(ctx context.Context) error {
			executed.Add(1)
			return nil
		}, func() {
			cancelled.Add(1)
		})))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
	assert.Equal(t, int32(0), executed.Load())
	assert.Equal(t, int32(2), cancelled.Load())
}

func TestPool_ShutdownWithoutStartCancelsQueuedJobs(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 10}, setupTestLogger())

	var cancelled atomic.Int32
	require.NoError(t, pool.Submit(NewCancellableJob("queued", func(ctx context.Context) error {
		return nil
	}, func() {
		cancelled.Add(1)
	})))
	require.NoError(t, pool.Submit(noopJob()))

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(1), cancelled.Load())
	assert.Equal(t, 0, pool.Pending())
}

func TestPool_PanickingCancelHookIsContained(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 10}, setupTestLogger())
	require.NoError(t, pool.Submit(NewCancellableJob("queued", func(ctx context.Context) error {
		return nil
	}, func() {
		panic("boom")
	})))

	assert.NotPanics(t, func() { _ = pool.Shutdown(context.Background()) })
}

func TestPool_JobTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 1, JobTimeout: 20 * time.Millisecond}, setupTestLogger())

	failed := make(chan error, 1)
	pool.SetErrorHandler(func(job Job, err error) { failed <- err })
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(NewJob("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not time out")
	}
}
