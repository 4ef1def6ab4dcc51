package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
	"go.uber.org/multierr"
)

// TaskUpdatesTopic returns the live topic carrying updates of one task.
func TaskUpdatesTopic(task *domain.Task) string {
	return fmt.Sprintf("/topic/task-updates/%s", task.ID)
}

// TaskUpdate is the live payload of a task change. AccessLevel is the
// receiving user's own level on the task.
type TaskUpdate struct {
	Task        domain.Task        `json:"task"`
	AccessLevel domain.AccessLevel `json:"access_level"`
}

// FanOut pushes committed task changes to every user with access to the
// task except the one who made the change.
type FanOut struct {
	tasks   store.TaskQuery
	pusher  Pusher
	timeout time.Duration
	logger  *slog.Logger
}

// NewFanOut creates a FanOut. Each push is bounded by timeout.
func NewFanOut(tasks store.TaskQuery, pusher Pusher, timeout time.Duration, logger *slog.Logger) *FanOut {
	if tasks == nil || pusher == nil {
		panic("fan-out dependencies cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{
		tasks:   tasks,
		pusher:  pusher,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "task_fanout")),
	}
}

// HandleEvent implements events.Handler for events.TaskUpdated.
// A failed push to one recipient does not prevent the others; the combined
// failures are returned.
func (f *FanOut) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TaskUpdated {
		return nil
	}

	var payload events.TaskUpdatedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal task update: %w", err)
	}
	task := &payload.Task
	log := logger.FromContextOrDefault(ctx, f.logger).With(
		slog.String("task_id", task.ID.String()),
		slog.String("event_id", event.ID.String()))

	grants, err := f.tasks.FindAccessGrants(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to load access grants: %w", err)
	}

	topic := TaskUpdatesTopic(task)
	var errs error
	pushed := 0
	for _, r := range domain.ResolveRecipients(task, grants) {
		if r.UserID == payload.ActorID {
			continue
		}
		if err := f.push(ctx, r.Username, topic, TaskUpdate{Task: *task, AccessLevel: r.Level}); err != nil {
			log.Warn("failed to push task update",
				slog.String("error", err.Error()),
				slog.String("username", r.Username))
			errs = multierr.Append(errs, fmt.Errorf("push to %s: %w", r.Username, err))
			continue
		}
		pushed++
	}

	log.Debug("task update fanned out", slog.Int("pushed", pushed))
	return errs
}

func (f *FanOut) push(ctx context.Context, username, topic string, update TaskUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.pusher.Push(ctx, username, topic, update)
}

var _ events.Handler = (*FanOut)(nil)
