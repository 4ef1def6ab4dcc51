package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/worker"
	"go.uber.org/multierr"
)

// Bus is an in-process publish/subscribe dispatcher. Handlers registered
// for an event type run on the bus's worker pool; when the pool's queue is
// full the publishing goroutine runs the handler itself so no event is lost.
// A Bus without a pool delivers synchronously.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	pool     *worker.Pool
	logger   *slog.Logger
}

// NewBus creates a bus delivering on pool. A nil pool makes Publish deliver
// inline before returning.
func NewBus(pool *worker.Pool, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[Type][]Handler),
		pool:     pool,
		logger:   logger.With(slog.String("component", "event_bus")),
	}
}

// Subscribe registers handler for events of the given type.
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("registered event handler",
		"event_type", eventType,
		"handler_count", len(b.handlers[eventType]))
}

// Publish hands the event to every handler subscribed to its type.
//
// With a pool, Publish returns once every handler has been queued or run;
// handler errors are logged by the pool and not returned. Without a pool,
// every handler runs even if an earlier one fails and the combined errors
// are returned.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	log := logger.FromContextOrDefault(ctx, b.logger)
	log.Debug("publishing event",
		"event_id", event.ID,
		"event_type", event.Type,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		log.Debug("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var errs error
	for i, handler := range handlers {
		if b.pool == nil {
			errs = multierr.Append(errs, b.deliver(ctx, log, event, handler, i))
			continue
		}
		if err := b.enqueue(ctx, log, event, handler, i); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// enqueue submits one handler invocation to the pool, running it on the
// caller's goroutine when the queue is full.
func (b *Bus) enqueue(ctx context.Context, log *slog.Logger, event *Event, handler Handler, index int) error {
	// the job outlives the publishing request, so only its logger is carried over
	job := worker.NewJob(string(event.Type), func(poolCtx context.Context) error {
		return b.deliver(logger.WithLogger(poolCtx, log), log, event, handler, index)
	})

	err := b.pool.Submit(job)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, worker.ErrQueueFull):
		log.Warn("event queue full, delivering on caller",
			"event_id", event.ID,
			"event_type", event.Type)
		_ = b.deliver(ctx, log, event, handler, index)
		return nil
	default:
		log.Error("failed to submit event",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type)
		return err
	}
}

// deliver runs one handler and logs its failure
func (b *Bus) deliver(ctx context.Context, log *slog.Logger, event *Event, handler Handler, index int) error {
	if err := handler.HandleEvent(ctx, event); err != nil {
		log.Error("handler failed to process event",
			"error", err,
			"handler_index", index,
			"event_id", event.ID,
			"event_type", event.Type)
		return err
	}
	return nil
}

var _ Publisher = (*Bus)(nil)
