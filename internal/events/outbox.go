package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"go.uber.org/multierr"
)

// Outbox buffers events raised inside a write transaction. The owner calls
// Flush after the transaction commits, or Discard after it rolls back, so
// subscribers only ever see committed changes.
type Outbox struct {
	mu        sync.Mutex
	publisher Publisher
	pending   []*Event
	done      bool
	logger    *slog.Logger
}

// NewOutbox creates an empty outbox publishing to publisher.
func NewOutbox(publisher Publisher, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		publisher: publisher,
		logger:    logger,
	}
}

// Add buffers an event. Events added after Flush or Discard are dropped.
func (o *Outbox) Add(event *Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		o.logger.Warn("event added to finished outbox, dropping",
			"event_id", event.ID,
			"event_type", event.Type)
		return
	}
	o.pending = append(o.pending, event)
}

// Len returns the number of buffered events.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Flush publishes every buffered event in the order it was added.
// A failure to publish one event does not stop the rest.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.pending
	o.pending = nil
	o.done = true
	o.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, o.logger)

	var errs error
	for _, event := range pending {
		if err := o.publisher.Publish(ctx, event); err != nil {
			log.Error("failed to publish outbox event",
				"error", err,
				"event_id", event.ID,
				"event_type", event.Type)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Discard drops every buffered event.
func (o *Outbox) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pending) > 0 {
		o.logger.Debug("discarding outbox events", "count", len(o.pending))
	}
	o.pending = nil
	o.done = true
}
