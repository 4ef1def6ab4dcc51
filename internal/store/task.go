package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// TaskQuery is the read-mostly view of tasks the deadline scheduler needs.
// Version: 1.0
type TaskQuery interface {
	// FindNotNotifiedUpcoming returns incomplete tasks whose notified flag is
	// false and whose due date lies in [start, end], both bounds inclusive.
	FindNotNotifiedUpcoming(ctx context.Context, start, end time.Time) ([]*domain.Task, error)

	// FindAccessGrants returns every grant on the task, excluding the owner
	// unless the owner was also granted explicitly.
	// Returns an empty slice for an unshared task.
	FindAccessGrants(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error)

	// SetNotified marks the task notified for the given due date.
	// The write only applies while the stored due date still equals dueDate,
	// so a due-date change that happened after the scan is not suppressed.
	// Calling it again for an already notified task is a no-op.
	SetNotified(ctx context.Context, taskID uuid.UUID, dueDate time.Time) error
}

// TaskStore extends TaskQuery with the writes performed by the task
// lifecycle service.
// Version: 1.0
type TaskStore interface {
	TaskQuery

	// Create saves a new task.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate retrieves a task and locks its row until the surrounding
	// transaction ends. Only meaningful on a store returned by WithTx.
	// Returns ErrTaskNotFound if the task does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves status, priority, due date, completion and notified state.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// WithTx returns a TaskStore that uses the provided transaction.
	WithTx(tx *sqlx.Tx) TaskStore
}
