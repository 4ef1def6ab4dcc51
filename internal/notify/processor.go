package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
	"go.uber.org/multierr"
)

// DispatchResult summarises one task's dispatch.
type DispatchResult struct {
	TaskID uuid.UUID

	// Notified lists the recipients that received a reminder.
	Notified []uuid.UUID

	// Skipped counts recipients outside their window, with reminders
	// disabled, or whose policy could not be read.
	Skipped int

	// OwnerNotified is true when the owner received a reminder.
	OwnerNotified bool

	// MarkedNotified is true when the task's notified flag was written.
	MarkedNotified bool

	// Err combines every per-recipient failure.
	Err error
}

// Processor evaluates one task against each recipient's personal policy
// and sends the reminders that fall inside their window.
type Processor struct {
	tasks    store.TaskQuery
	policies store.PolicyStore
	notifier *Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(tasks store.TaskQuery, policies store.PolicyStore, notifier *Notifier, logger *slog.Logger) *Processor {
	if tasks == nil || policies == nil || notifier == nil {
		panic("processor dependencies cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		tasks:    tasks,
		policies: policies,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "dispatch_processor")),
	}
}

// Process sends deadline reminders for task to each recipient whose window
// contains the due date, i.e. now < due < now + lead time. When the owner
// is reminded the task is marked notified for its current due date.
// Failures are isolated per recipient, logged, and reported in the result.
func (p *Processor) Process(ctx context.Context, task *domain.Task, recipients []domain.Recipient) DispatchResult {
	log := logger.FromContextOrDefault(ctx, p.logger).With(slog.String("task_id", task.ID.String()))
	result := DispatchResult{TaskID: task.ID}

	if task.DueDate == nil {
		log.Debug("task has no due date, nothing to dispatch")
		result.Skipped = len(recipients)
		return result
	}
	due := *task.DueDate
	now := p.now()

	var errs error
	for _, r := range recipients {
		policy, err := p.policies.GetNotificationPolicy(ctx, r.UserID)
		if err != nil {
			log.Warn("policy lookup failed, skipping recipient",
				slog.String("error", err.Error()),
				slog.String("user_id", r.UserID.String()))
			errs = multierr.Append(errs, fmt.Errorf("policy lookup for user %s: %w", r.UserID, err))
			result.Skipped++
			continue
		}

		if !policy.Enabled(domain.CategoryTaskDeadline) {
			result.Skipped++
			continue
		}

		threshold := now.Add(policy.LeadTime())
		if !due.After(now) || !due.Before(threshold) {
			result.Skipped++
			continue
		}

		if _, err := p.notifier.NotifyDeadline(ctx, r, task); err != nil {
			log.Error("failed to deliver deadline reminder",
				slog.String("error", err.Error()),
				slog.String("user_id", r.UserID.String()))
			errs = multierr.Append(errs, fmt.Errorf("reminder for user %s: %w", r.UserID, err))
			continue
		}

		result.Notified = append(result.Notified, r.UserID)
		if r.IsOwner {
			result.OwnerNotified = true
		}
	}

	if result.OwnerNotified {
		switch err := p.tasks.SetNotified(ctx, task.ID, due); {
		case err == nil:
			result.MarkedNotified = true
		case errors.Is(err, store.ErrUpdateFailed):
			log.Info("due date changed since scan, task left un-notified")
		default:
			log.Error("failed to mark task notified", slog.String("error", err.Error()))
			errs = multierr.Append(errs, fmt.Errorf("mark notified: %w", err))
		}
	}

	result.Err = errs
	if errs != nil {
		log.Error("dispatch completed with errors",
			slog.String("error", errs.Error()),
			slog.Int("failures", len(multierr.Errors(errs))))
	} else {
		log.Debug("dispatch completed",
			slog.Int("notified", len(result.Notified)),
			slog.Int("skipped", result.Skipped),
			slog.Bool("marked_notified", result.MarkedNotified))
	}

	return result
}
