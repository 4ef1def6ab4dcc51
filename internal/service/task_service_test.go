package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/events"
	"github.com/phrazzld/tasknotify/internal/mocks"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type taskFixture struct {
	svc        *taskServiceImpl
	tasks      *mocks.MockTaskStore
	transactor *mocks.MockTransactor
	publisher  *mocks.MockPublisher
	owner      Actor
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := &taskFixture{
		tasks:      &mocks.MockTaskStore{},
		transactor: &mocks.MockTransactor{},
		publisher:  &mocks.MockPublisher{},
		owner:      Actor{UserID: uuid.New(), Username: "owner"},
	}
	svc, err := NewTaskService(f.transactor, f.tasks, f.publisher, testLogger())
	require.NoError(t, err)
	f.svc = svc.(*taskServiceImpl)
	f.svc.now = func() time.Time { return testNow }
	return f
}

// stored registers task as the only task the mock store knows about.
func (f *taskFixture) stored(task *domain.Task) {
	f.tasks.GetByIDFn = func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		if id != task.ID {
			return nil, store.ErrTaskNotFound
		}
		c := *task
		return &c, nil
	}
}

func (f *taskFixture) existingTask() *domain.Task {
	created := testNow.Add(-24 * time.Hour)
	return &domain.Task{
		ID:            uuid.New(),
		Title:         "Write report",
		OwnerID:       f.owner.UserID,
		OwnerUsername: f.owner.Username,
		Status:        domain.TaskStatusTodo,
		Priority:      domain.TaskPriorityMedium,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func lifecyclePayload(t *testing.T, event *events.Event) events.TaskLifecyclePayload {
	t.Helper()
	require.Equal(t, events.TaskLifecycle, event.Type)
	var payload events.TaskLifecyclePayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	return payload
}

func TestNewTaskService(t *testing.T) {
	_, err := NewTaskService(nil, &mocks.MockTaskStore{}, &mocks.MockPublisher{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewTaskService(&mocks.MockTransactor{}, nil, &mocks.MockPublisher{}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewTaskService(&mocks.MockTransactor{}, &mocks.MockTaskStore{}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	svc, err := NewTaskService(&mocks.MockTransactor{}, &mocks.MockTaskStore{}, &mocks.MockPublisher{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestTaskService_Create(t *testing.T) {
	t.Run("top-level task emits create lifecycle event", func(t *testing.T) {
		f := newTaskFixture(t)
		due := testNow.Add(48 * time.Hour)
		category := uuid.New()

		task, err := f.svc.Create(context.Background(), f.owner, CreateTaskInput{
			Title:      "  Plan sprint ",
			Priority:   domain.TaskPriorityHigh,
			CategoryID: &category,
			DueDate:    &due,
		})
		require.NoError(t, err)

		assert.Equal(t, "Plan sprint", task.Title)
		assert.Equal(t, f.owner.UserID, task.OwnerID)
		assert.Equal(t, f.owner.Username, task.OwnerUsername)
		assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
		assert.Equal(t, &category, task.CategoryID)
		require.NotNil(t, task.DueDate)
		assert.True(t, task.DueDate.Equal(due))
		assert.False(t, task.Notified)
		require.Len(t, f.tasks.Created, 1)
		assert.Equal(t, 1, f.transactor.Calls())

		published := f.publisher.Events()
		require.Len(t, published, 1)
		payload := lifecyclePayload(t, published[0])
		assert.Equal(t, events.ActionCreate, payload.Action)
		assert.Nil(t, payload.Prev)
		assert.Equal(t, task.ID, payload.Next.ID)
		assert.Equal(t, f.owner.UserID, payload.UserID)
		assert.Equal(t, "owner", payload.Username)
	})

	t.Run("subtask nests below an accessible parent", func(t *testing.T) {
		f := newTaskFixture(t)
		parent := f.existingTask()
		f.stored(parent)

		task, err := f.svc.Create(context.Background(), f.owner, CreateTaskInput{
			Title:    "Draft outline",
			ParentID: &parent.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, task.ParentID)
		assert.Equal(t, parent.ID, *task.ParentID)
		assert.Equal(t, 1, task.Depth)
		assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
	})

	t.Run("nesting depth is enforced", func(t *testing.T) {
		f := newTaskFixture(t)
		parent := f.existingTask()
		parentOfParent := uuid.New()
		parent.ParentID = &parentOfParent
		parent.Depth = domain.MaxNestingDepth
		f.stored(parent)

		_, err := f.svc.Create(context.Background(), f.owner, CreateTaskInput{
			Title:    "Too deep",
			ParentID: &parent.ID,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidNestingDepth)
		assert.Empty(t, f.tasks.Created)
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("unknown parent", func(t *testing.T) {
		f := newTaskFixture(t)
		missing := uuid.New()

		_, err := f.svc.Create(context.Background(), f.owner, CreateTaskInput{Title: "Orphan", ParentID: &missing})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("view-only collaborator cannot add subtasks", func(t *testing.T) {
		f := newTaskFixture(t)
		parent := f.existingTask()
		f.stored(parent)
		viewer := Actor{UserID: uuid.New(), Username: "viewer"}
		f.tasks.FindAccessGrantsFn = func(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
			return []domain.AccessGrant{{TaskID: taskID, UserID: viewer.UserID, Username: "viewer", Level: domain.AccessLevelView}}, nil
		}

		_, err := f.svc.Create(context.Background(), viewer, CreateTaskInput{Title: "Sneaky", ParentID: &parent.ID})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newTaskFixture(t)

		_, err := f.svc.Create(context.Background(), f.owner, CreateTaskInput{Title: "   "})
		assert.ErrorIs(t, err, domain.ErrEmptyTaskTitle)

		_, err = f.svc.Create(context.Background(), f.owner, CreateTaskInput{Title: "x", Priority: "urgent"})
		assert.ErrorIs(t, err, domain.ErrInvalidTaskPriority)
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("store failure discards events", func(t *testing.T) {
		f := newTaskFixture(t)
		dbErr := errors.New("insert failed")
		f.tasks.CreateFn = func(ctx context.Context, task *domain.Task) error { return dbErr }

		_, err := f.svc.Create(context.Background(), f.owner, CreateTaskInput{Title: "Doomed"})
		assert.ErrorIs(t, err, dbErr)

		var svcErr *ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "create_task", svcErr.Operation)
		assert.Empty(t, f.publisher.Events())
	})
}

func TestTaskService_UpdateStatus(t *testing.T) {
	t.Run("completion emits lifecycle and update events after commit", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)

		var committed bool
		f.transactor.RunInTransactionFn = func(ctx context.Context, fn store.TxFn) error {
			err := fn(ctx, nil)
			assert.Empty(t, f.publisher.Events(), "nothing is published before commit")
			committed = err == nil
			return err
		}

		updated, err := f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusDone)
		require.NoError(t, err)
		require.True(t, committed)

		assert.Equal(t, domain.TaskStatusDone, updated.Status)
		require.NotNil(t, updated.CompletedAt)
		assert.True(t, updated.CompletedAt.Equal(testNow))
		require.Len(t, f.tasks.Updated, 1)

		assert.Equal(t, []events.Type{events.TaskLifecycle, events.TaskUpdated}, f.publisher.Types())
		payload := lifecyclePayload(t, f.publisher.Events()[0])
		assert.Equal(t, events.ActionComplete, payload.Action)
		require.NotNil(t, payload.Prev)
		assert.Equal(t, domain.TaskStatusTodo, payload.Prev.Status)
		assert.Equal(t, domain.TaskStatusDone, payload.Next.Status)

		var upd events.TaskUpdatedPayload
		require.NoError(t, f.publisher.Events()[1].UnmarshalPayload(&upd))
		assert.Equal(t, f.owner.UserID, upd.ActorID)
		assert.Equal(t, task.ID, upd.Task.ID)
		assert.Equal(t, domain.TaskStatusDone, upd.Task.Status)
	})

	t.Run("reverting clears completion", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		done := testNow.Add(-time.Hour)
		task.Status = domain.TaskStatusDone
		task.CompletedAt = &done
		f.stored(task)

		updated, err := f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusInProgress)
		require.NoError(t, err)
		assert.Nil(t, updated.CompletedAt)

		payload := lifecyclePayload(t, f.publisher.Events()[0])
		assert.True(t, payload.Prev.IsDone())
		assert.False(t, payload.Next.IsDone())
	})

	t.Run("overdue task may only move to done", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		due := testNow.Add(-time.Hour)
		task.DueDate = &due
		f.stored(task)

		_, err := f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusInProgress)
		assert.ErrorIs(t, err, domain.ErrTaskOverdue)
		assert.Empty(t, f.tasks.Updated)
		assert.Empty(t, f.publisher.Events())

		_, err = f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusDone)
		assert.NoError(t, err)
	})

	t.Run("unchanged status is a no-op", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)

		updated, err := f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusTodo)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusTodo, updated.Status)
		assert.Empty(t, f.tasks.Updated)
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("editor collaborator may update", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)
		editor := Actor{UserID: uuid.New(), Username: "editor"}
		f.tasks.FindAccessGrantsFn = func(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
			return []domain.AccessGrant{{TaskID: taskID, UserID: editor.UserID, Username: "editor", Level: domain.AccessLevelEdit}}, nil
		}

		_, err := f.svc.UpdateStatus(context.Background(), editor, task.ID, domain.TaskStatusInProgress)
		require.NoError(t, err)

		payload := lifecyclePayload(t, f.publisher.Events()[0])
		assert.Equal(t, editor.UserID, payload.UserID)
		assert.Equal(t, "editor", payload.Username)
	})

	t.Run("stranger sees not found", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)

		_, err := f.svc.UpdateStatus(context.Background(), Actor{UserID: uuid.New(), Username: "stranger"}, task.ID, domain.TaskStatusDone)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("grant lookup failure", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)
		lookupErr := errors.New("grants unavailable")
		f.tasks.FindAccessGrantsFn = func(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
			return nil, lookupErr
		}

		_, err := f.svc.UpdateStatus(context.Background(), Actor{UserID: uuid.New()}, task.ID, domain.TaskStatusDone)
		assert.ErrorIs(t, err, lookupErr)
	})

	t.Run("missing task", func(t *testing.T) {
		f := newTaskFixture(t)

		_, err := f.svc.UpdateStatus(context.Background(), f.owner, uuid.New(), domain.TaskStatusDone)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("publish failure does not fail the committed change", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)
		f.publisher.PublishFn = func(ctx context.Context, event *events.Event) error {
			return errors.New("bus stopped")
		}

		updated, err := f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusDone)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, updated.Status)
		assert.Len(t, f.publisher.Events(), 2)
	})

	t.Run("update failure rolls back and publishes nothing", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		f.stored(task)
		f.tasks.UpdateFn = func(ctx context.Context, task *domain.Task) error {
			return store.ErrUpdateFailed
		}

		_, err := f.svc.UpdateStatus(context.Background(), f.owner, task.ID, domain.TaskStatusDone)
		assert.ErrorIs(t, err, store.ErrUpdateFailed)
		assert.Empty(t, f.publisher.Events())
	})
}

func TestTaskService_UpdatePriority(t *testing.T) {
	f := newTaskFixture(t)
	task := f.existingTask()
	f.stored(task)

	updated, err := f.svc.UpdatePriority(context.Background(), f.owner, task.ID, domain.TaskPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityHigh, updated.Priority)

	payload := lifecyclePayload(t, f.publisher.Events()[0])
	assert.Equal(t, domain.TaskPriorityMedium, payload.Prev.Priority)
	assert.Equal(t, domain.TaskPriorityHigh, payload.Next.Priority)

	_, err = f.svc.UpdatePriority(context.Background(), f.owner, task.ID, "urgent")
	assert.ErrorIs(t, err, domain.ErrInvalidTaskPriority)
}

func TestTaskService_UpdateDueDate(t *testing.T) {
	t.Run("new due date re-arms the reminder", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		due := testNow.Add(2 * time.Hour)
		task.DueDate = &due
		task.Notified = true
		f.stored(task)

		later := due.Add(24 * time.Hour)
		updated, err := f.svc.UpdateDueDate(context.Background(), f.owner, task.ID, &later)
		require.NoError(t, err)

		assert.False(t, updated.Notified)
		assert.True(t, updated.DueDate.Equal(later))
		require.Len(t, f.tasks.Updated, 1)
		assert.False(t, f.tasks.Updated[0].Notified)
		assert.Equal(t, []events.Type{events.TaskLifecycle, events.TaskUpdated}, f.publisher.Types())
	})

	t.Run("same due date keeps the reminder suppressed", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		due := testNow.Add(2 * time.Hour)
		task.DueDate = &due
		task.Notified = true
		f.stored(task)

		same := due
		updated, err := f.svc.UpdateDueDate(context.Background(), f.owner, task.ID, &same)
		require.NoError(t, err)
		assert.True(t, updated.Notified)
		assert.Empty(t, f.tasks.Updated)
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("clearing the due date", func(t *testing.T) {
		f := newTaskFixture(t)
		task := f.existingTask()
		due := testNow.Add(2 * time.Hour)
		task.DueDate = &due
		f.stored(task)

		updated, err := f.svc.UpdateDueDate(context.Background(), f.owner, task.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, updated.DueDate)
	})
}
