package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID   uuid.UUID
	Username string
}

// CreateTaskInput carries the fields accepted when creating a task.
type CreateTaskInput struct {
	Title      string
	ParentID   *uuid.UUID
	Priority   domain.TaskPriority
	CategoryID *uuid.UUID
	DueDate    *time.Time
}

// TaskService provides the task lifecycle operations that drive
// notifications and achievements.
type TaskService interface {
	// Create saves a new task owned by the actor. A subtask requires edit
	// access to its parent.
	Create(ctx context.Context, actor Actor, input CreateTaskInput) (*domain.Task, error)

	// UpdateStatus moves a task to a new status.
	// An overdue task may only move to done.
	UpdateStatus(ctx context.Context, actor Actor, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error)

	// UpdatePriority changes a task's priority.
	UpdatePriority(ctx context.Context, actor Actor, taskID uuid.UUID, priority domain.TaskPriority) (*domain.Task, error)

	// UpdateDueDate changes or clears a task's due date and re-arms its
	// deadline reminder.
	UpdateDueDate(ctx context.Context, actor Actor, taskID uuid.UUID, due *time.Time) (*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	transactor store.Transactor
	tasks      store.TaskStore
	publisher  events.Publisher
	now        func() time.Time
	logger     *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	transactor store.Transactor,
	tasks store.TaskStore,
	publisher events.Publisher,
	logger *slog.Logger,
) (TaskService, error) {
	if transactor == nil {
		return nil, domain.NewValidationError("transactor", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		transactor: transactor,
		tasks:      tasks,
		publisher:  publisher,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "task_service")),
	}, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(ctx context.Context, actor Actor, input CreateTaskInput) (*domain.Task, error) {
	const op = "create_task"
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", actor.UserID.String()))

	outbox := events.NewOutbox(s.publisher, s.logger)
	var created *domain.Task

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tasks := s.tasks.WithTx(tx)

		var parent *domain.Task
		if input.ParentID != nil {
			p, err := tasks.GetByID(ctx, *input.ParentID)
			if err != nil {
				if store.IsNotFoundError(err) {
					return NewServiceError(op, "parent task not found", store.ErrTaskNotFound)
				}
				return NewServiceError(op, "failed to load parent task", err)
			}
			if err := authorize(ctx, tasks, p, actor.UserID, domain.AccessLevelEdit); err != nil {
				return NewServiceError(op, "parent task not accessible", err)
			}
			parent = p
		}

		task, err := domain.NewTask(actor.UserID, actor.Username, input.Title, parent)
		if err != nil {
			return NewServiceError(op, "invalid task", err)
		}

		now := s.now()
		if input.Priority != "" {
			if err := task.ChangePriority(input.Priority, now); err != nil {
				return NewServiceError(op, "invalid task", err)
			}
		}
		task.CategoryID = input.CategoryID
		task.ChangeDueDate(input.DueDate, now)

		if err := tasks.Create(ctx, task); err != nil {
			log.Error("failed to save task", slog.String("error", err.Error()))
			return NewServiceError(op, "failed to save task", err)
		}

		event, err := events.NewEvent(events.TaskLifecycle, events.TaskLifecyclePayload{
			UserID:     actor.UserID,
			Username:   actor.Username,
			Action:     events.ActionCreate,
			Next:       task.Snapshot(),
			OccurredAt: now.UTC(),
		})
		if err != nil {
			return NewServiceError(op, "failed to build lifecycle event", err)
		}
		outbox.Add(event)

		created = task
		return nil
	})
	if err != nil {
		outbox.Discard()
		return nil, err
	}

	s.flush(ctx, log, outbox)
	log.Info("task created", slog.String("task_id", created.ID.String()))
	return created, nil
}

// UpdateStatus implements TaskService.UpdateStatus
func (s *taskServiceImpl) UpdateStatus(
	ctx context.Context,
	actor Actor,
	taskID uuid.UUID,
	status domain.TaskStatus,
) (*domain.Task, error) {
	return s.mutate(ctx, "update_status", actor, taskID, func(task *domain.Task, now time.Time) error {
		return task.ChangeStatus(status, now)
	})
}

// UpdatePriority implements TaskService.UpdatePriority
func (s *taskServiceImpl) UpdatePriority(
	ctx context.Context,
	actor Actor,
	taskID uuid.UUID,
	priority domain.TaskPriority,
) (*domain.Task, error) {
	return s.mutate(ctx, "update_priority", actor, taskID, func(task *domain.Task, now time.Time) error {
		return task.ChangePriority(priority, now)
	})
}

// UpdateDueDate implements TaskService.UpdateDueDate
func (s *taskServiceImpl) UpdateDueDate(
	ctx context.Context,
	actor Actor,
	taskID uuid.UUID,
	due *time.Time,
) (*domain.Task, error) {
	return s.mutate(ctx, "update_due_date", actor, taskID, func(task *domain.Task, now time.Time) error {
		task.ChangeDueDate(due, now)
		return nil
	})
}

// mutate locks the task, applies change and persists it. A change that
// leaves the task untouched is not saved and raises no events.
func (s *taskServiceImpl) mutate(
	ctx context.Context,
	op string,
	actor Actor,
	taskID uuid.UUID,
	change func(task *domain.Task, now time.Time) error,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", op),
		slog.String("task_id", taskID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	outbox := events.NewOutbox(s.publisher, s.logger)
	var result *domain.Task

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		tasks := s.tasks.WithTx(tx)

		task, err := tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			if store.IsNotFoundError(err) {
				return NewServiceError(op, "task not found", store.ErrTaskNotFound)
			}
			return NewServiceError(op, "failed to load task", err)
		}
		if err := authorize(ctx, tasks, task, actor.UserID, domain.AccessLevelEdit); err != nil {
			return NewServiceError(op, "task not accessible", err)
		}

		prev := task.Snapshot()
		updatedAt := task.UpdatedAt
		now := s.now()

		if err := change(task, now); err != nil {
			return NewServiceError(op, "invalid change", err)
		}
		result = task
		if task.UpdatedAt.Equal(updatedAt) {
			log.Debug("task unchanged, skipping update")
			return nil
		}

		if err := tasks.Update(ctx, task); err != nil {
			log.Error("failed to save task", slog.String("error", err.Error()))
			return NewServiceError(op, "failed to save task", err)
		}

		lifecycle, err := events.NewEvent(events.TaskLifecycle, events.TaskLifecyclePayload{
			UserID:     actor.UserID,
			Username:   actor.Username,
			Action:     events.ActionComplete,
			Prev:       &prev,
			Next:       task.Snapshot(),
			OccurredAt: now.UTC(),
		})
		if err != nil {
			return NewServiceError(op, "failed to build lifecycle event", err)
		}
		updated, err := events.NewEvent(events.TaskUpdated, events.TaskUpdatedPayload{
			ActorID: actor.UserID,
			Task:    *task,
		})
		if err != nil {
			return NewServiceError(op, "failed to build update event", err)
		}
		outbox.Add(lifecycle)
		outbox.Add(updated)
		return nil
	})
	if err != nil {
		outbox.Discard()
		return nil, err
	}

	s.flush(ctx, log, outbox)
	return result, nil
}

// authorize checks that userID holds at least the required level on task.
// A user with no access at all gets ErrTaskNotFound so the task's existence
// is not revealed.
func authorize(
	ctx context.Context,
	tasks store.TaskQuery,
	task *domain.Task,
	userID uuid.UUID,
	required domain.AccessLevel,
) error {
	if task.OwnerID == userID {
		return nil
	}

	grants, err := tasks.FindAccessGrants(ctx, task.ID)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if g.UserID != userID {
			continue
		}
		if g.Level.AtLeast(required) {
			return nil
		}
		return ErrAccessDenied
	}
	return store.ErrTaskNotFound
}

// flush publishes the committed events. The task change already committed,
// so a publish failure is logged and not returned.
func (s *taskServiceImpl) flush(ctx context.Context, log *slog.Logger, outbox *events.Outbox) {
	if err := outbox.Flush(ctx); err != nil {
		log.Error("failed to publish task events", slog.String("error", err.Error()))
	}
}
