package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	ownerID := uuid.New()

	t.Run("root task", func(t *testing.T) {
		task, err := NewTask(ownerID, "alice", "  write report  ", nil)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, "write report", task.Title)
		assert.Equal(t, TaskStatusTodo, task.Status)
		assert.Equal(t, TaskPriorityMedium, task.Priority)
		assert.Equal(t, 0, task.Depth)
		assert.True(t, task.IsTopLevel())
		assert.False(t, task.Notified)
	})

	t.Run("nested up to max depth", func(t *testing.T) {
		root, err := NewTask(ownerID, "alice", "root", nil)
		require.NoError(t, err)
		child, err := NewTask(ownerID, "alice", "child", root)
		require.NoError(t, err)
		grandchild, err := NewTask(ownerID, "alice", "grandchild", child)
		require.NoError(t, err)

		assert.Equal(t, MaxNestingDepth, grandchild.Depth)
		require.NotNil(t, grandchild.ParentID)
		assert.Equal(t, child.ID, *grandchild.ParentID)
		assert.False(t, child.IsTopLevel())

		_, err = NewTask(ownerID, "alice", "too deep", grandchild)
		assert.ErrorIs(t, err, ErrInvalidNestingDepth)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := NewTask(uuid.Nil, "alice", "title", nil)
		assert.ErrorIs(t, err, ErrEmptyTaskOwnerID)

		_, err = NewTask(ownerID, "alice", "   ", nil)
		assert.ErrorIs(t, err, ErrEmptyTaskTitle)
	})
}

func TestTaskChangeStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("done sets completed at and revert clears it", func(t *testing.T) {
		task, err := NewTask(uuid.New(), "alice", "title", nil)
		require.NoError(t, err)

		require.NoError(t, task.ChangeStatus(TaskStatusDone, now))
		require.NotNil(t, task.CompletedAt)
		assert.True(t, task.CompletedAt.Equal(now))

		require.NoError(t, task.ChangeStatus(TaskStatusInProgress, now.Add(time.Minute)))
		assert.Nil(t, task.CompletedAt)
		assert.Equal(t, TaskStatusInProgress, task.Status)
	})

	t.Run("overdue task can only be completed", func(t *testing.T) {
		task, err := NewTask(uuid.New(), "alice", "title", nil)
		require.NoError(t, err)
		past := now.Add(-time.Hour)
		task.DueDate = &past

		assert.ErrorIs(t, task.ChangeStatus(TaskStatusInProgress, now), ErrTaskOverdue)
		assert.NoError(t, task.ChangeStatus(TaskStatusDone, now))
	})

	t.Run("invalid status", func(t *testing.T) {
		task, err := NewTask(uuid.New(), "alice", "title", nil)
		require.NoError(t, err)

		assert.ErrorIs(t, task.ChangeStatus("archived", now), ErrInvalidTaskStatus)
	})
}

func TestTaskChangeDueDate(t *testing.T) {
	now := time.Now().UTC()
	due := now.Add(2 * time.Hour)

	task, err := NewTask(uuid.New(), "alice", "title", nil)
	require.NoError(t, err)
	task.DueDate = &due
	task.Notified = true

	sameDue := due
	task.ChangeDueDate(&sameDue, now)
	assert.True(t, task.Notified, "unchanged due date keeps the reminder suppressed")

	later := due.Add(time.Hour)
	task.ChangeDueDate(&later, now)
	assert.False(t, task.Notified, "a new due date re-arms the reminder")
	assert.True(t, task.DueDate.Equal(later))

	task.Notified = true
	task.ChangeDueDate(nil, now)
	assert.False(t, task.Notified)
	assert.Nil(t, task.DueDate)
}

func TestTaskSnapshotIsDetached(t *testing.T) {
	parent := uuid.New()
	due := time.Now()
	task := &Task{ParentID: &parent, DueDate: &due, Status: TaskStatusDone}

	snap := task.Snapshot()
	*task.ParentID = uuid.New()
	*task.DueDate = due.Add(time.Hour)

	assert.Equal(t, parent, *snap.ParentID)
	assert.True(t, snap.DueDate.Equal(due))
	assert.True(t, snap.IsDone())
	assert.False(t, snap.IsTopLevel())
}

func TestTaskChangePriority(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	task := &Task{Priority: TaskPriorityMedium}

	assert.ErrorIs(t, task.ChangePriority("urgent", now), ErrInvalidTaskPriority)
	assert.Equal(t, TaskPriorityMedium, task.Priority)

	assert.NoError(t, task.ChangePriority(TaskPriorityHigh, now))
	assert.Equal(t, TaskPriorityHigh, task.Priority)
	assert.Equal(t, now, task.UpdatedAt)
}
