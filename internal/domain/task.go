package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority represents how urgent a task is.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// MaxNestingDepth is the deepest a task may sit below its root task.
// A root task has depth 0.
const MaxNestingDepth = 2

// Common validation errors for Task
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwnerID    = errors.New("task owner ID cannot be empty")
	ErrEmptyTaskTitle      = errors.New("task title cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTaskPriority = errors.New("invalid task priority")
	ErrInvalidNestingDepth = errors.New("task nesting depth exceeded")
	ErrTaskOverdue         = errors.New("overdue task can only be marked done")
)

// Task is a unit of work owned by one user and optionally shared with others
// through access grants. Only the fields the notification and achievement
// core reads or writes are modelled here.
type Task struct {
	ID            uuid.UUID    `db:"id"             json:"id"`
	Title         string       `db:"title"          json:"title"`
	OwnerID       uuid.UUID    `db:"owner_id"       json:"owner_id"`
	OwnerUsername string       `db:"owner_username" json:"owner_username"`
	ParentID      *uuid.UUID   `db:"parent_id"      json:"parent_id,omitempty"`
	Depth         int          `db:"depth"          json:"depth"`
	Status        TaskStatus   `db:"status"         json:"status"`
	Priority      TaskPriority `db:"priority"       json:"priority"`
	CategoryID    *uuid.UUID   `db:"category_id"    json:"category_id,omitempty"`
	DueDate       *time.Time   `db:"due_date"       json:"due_date,omitempty"`
	CompletedAt   *time.Time   `db:"completed_at"   json:"completed_at,omitempty"`
	Notified      bool         `db:"notified"       json:"notified"`
	CreatedAt     time.Time    `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"     json:"updated_at"`
}

// NewTask creates a to-do task owned by ownerID. When parent is non-nil the
// new task is nested one level below it and inherits nothing else.
// Returns an error if validation fails, including when nesting would exceed
// MaxNestingDepth.
func NewTask(ownerID uuid.UUID, ownerUsername, title string, parent *Task) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(title),
		OwnerID:       ownerID,
		OwnerUsername: ownerUsername,
		Status:        TaskStatusTodo,
		Priority:      TaskPriorityMedium,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if parent != nil {
		parentID := parent.ID
		task.ParentID = &parentID
		task.Depth = parent.Depth + 1
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwnerID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}
	if !IsValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}
	if !IsValidTaskPriority(t.Priority) {
		return ErrInvalidTaskPriority
	}
	if t.Depth < 0 || t.Depth > MaxNestingDepth {
		return ErrInvalidNestingDepth
	}
	return nil
}

// IsTopLevel reports whether the task has no parent.
func (t *Task) IsTopLevel() bool {
	return t.ParentID == nil
}

// IsOverdue reports whether the task has a due date in the past and is not done.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusDone
}

// ChangeStatus moves the task to status, maintaining CompletedAt.
// An overdue task may only move to done.
func (t *Task) ChangeStatus(status TaskStatus, now time.Time) error {
	if !IsValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}
	if status == t.Status {
		return nil
	}
	if t.IsOverdue(now) && status != TaskStatusDone {
		return ErrTaskOverdue
	}

	switch {
	case status == TaskStatusDone:
		completed := now.UTC()
		t.CompletedAt = &completed
	case t.Status == TaskStatusDone:
		t.CompletedAt = nil
	}

	t.Status = status
	t.UpdatedAt = now.UTC()
	return nil
}

// ChangeDueDate sets a new due date. Any actual change re-arms the deadline
// reminder by clearing Notified.
func (t *Task) ChangeDueDate(due *time.Time, now time.Time) {
	if sameInstant(t.DueDate, due) {
		return
	}
	if due != nil {
		d := due.UTC()
		due = &d
	}
	t.DueDate = due
	t.Notified = false
	t.UpdatedAt = now.UTC()
}

// ChangePriority sets a new priority.
func (t *Task) ChangePriority(priority TaskPriority, now time.Time) error {
	if !IsValidTaskPriority(priority) {
		return ErrInvalidTaskPriority
	}
	if priority == t.Priority {
		return nil
	}
	t.Priority = priority
	t.UpdatedAt = now.UTC()
	return nil
}

// Snapshot captures the fields achievement rules inspect.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:          t.ID,
		Status:      t.Status,
		Priority:    t.Priority,
		ParentID:    copyUUID(t.ParentID),
		CategoryID:  copyUUID(t.CategoryID),
		DueDate:     copyTime(t.DueDate),
		CompletedAt: copyTime(t.CompletedAt),
		CreatedAt:   t.CreatedAt,
	}
}

// TaskSnapshot is an immutable view of a task at one point of its lifecycle.
type TaskSnapshot struct {
	ID          uuid.UUID    `json:"id"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	ParentID    *uuid.UUID   `json:"parent_id,omitempty"`
	CategoryID  *uuid.UUID   `json:"category_id,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// IsTopLevel reports whether the snapshot has no parent.
func (s TaskSnapshot) IsTopLevel() bool {
	return s.ParentID == nil
}

// IsDone reports whether the snapshot is in the done state.
func (s TaskSnapshot) IsDone() bool {
	return s.Status == TaskStatusDone
}

// IsValidTaskStatus checks if the status is one of the defined values.
func IsValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// IsValidTaskPriority checks if the priority is one of the defined values.
func IsValidTaskPriority(priority TaskPriority) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
