package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

const taskColumns = `
	t.id, t.title, t.owner_id, u.username AS owner_username, t.parent_id, t.depth,
	t.status, t.priority, t.category_id, t.due_date, t.completed_at, t.notified,
	t.created_at, t.updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sqlx.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// FindNotNotifiedUpcoming implements store.TaskQuery.FindNotNotifiedUpcoming.
func (s *PostgresTaskStore) FindNotNotifiedUpcoming(
	ctx context.Context,
	start, end time.Time,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.owner_id
		WHERE t.notified = FALSE
		  AND t.completed_at IS NULL
		  AND t.due_date BETWEEN $1 AND $2
		ORDER BY t.due_date
	`

	tasks := []*domain.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, start, end); err != nil {
		log.Error("failed to query upcoming tasks",
			slog.String("error", err.Error()),
			slog.Time("window_start", start),
			slog.Time("window_end", end))
		return nil, MapError(err)
	}

	log.Debug("queried upcoming tasks",
		slog.Int("count", len(tasks)),
		slog.Time("window_start", start),
		slog.Time("window_end", end))
	return tasks, nil
}

// FindAccessGrants implements store.TaskQuery.FindAccessGrants.
func (s *PostgresTaskStore) FindAccessGrants(ctx context.Context, taskID uuid.UUID) ([]domain.AccessGrant, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT a.task_id, a.user_id, u.username, a.level
		FROM task_access a
		JOIN users u ON u.id = a.user_id
		WHERE a.task_id = $1
		ORDER BY u.username
	`

	grants := []domain.AccessGrant{}
	if err := s.db.SelectContext(ctx, &grants, query, taskID); err != nil {
		log.Error("failed to query access grants",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	return grants, nil
}

// SetNotified implements store.TaskQuery.SetNotified.
// Returns store.ErrUpdateFailed when the task is gone or its due date moved.
func (s *PostgresTaskStore) SetNotified(ctx context.Context, taskID uuid.UUID, dueDate time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET notified = TRUE, updated_at = NOW()
		WHERE id = $1 AND due_date = $2
	`

	result, err := s.db.ExecContext(ctx, query, taskID, dueDate)
	if err != nil {
		log.Error("failed to mark task notified",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	notFound := fmt.Errorf("%w: task %s no longer due at %s", store.ErrUpdateFailed, taskID, dueDate.Format(time.RFC3339))
	if err := CheckRowsAffected(result, notFound); err != nil {
		log.Debug("task not marked notified",
			slog.String("task_id", taskID.String()),
			slog.String("reason", err.Error()))
		return err
	}

	log.Debug("task marked notified", slog.String("task_id", taskID.String()))
	return nil
}

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (
			id, title, owner_id, parent_id, depth, status, priority, category_id,
			due_date, completed_at, notified, created_at, updated_at
		) VALUES (
			:id, :title, :owner_id, :parent_id, :depth, :status, :priority, :category_id,
			:due_date, :completed_at, :notified, :created_at, :updated_at
		)
	`

	if _, err := sqlx.NamedExecContext(ctx, s.db, query, task); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("owner_id", task.OwnerID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.get(ctx, id, "")
}

// GetForUpdate implements store.TaskStore.GetForUpdate.
func (s *PostgresTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.get(ctx, id, "FOR UPDATE OF t")
}

func (s *PostgresTaskStore) get(ctx context.Context, id uuid.UUID, lock string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.owner_id
		WHERE t.id = $1
	` + lock

	var task domain.Task
	if err := s.db.GetContext(ctx, &task, query, id); err != nil {
		err = mapNotFound(err, store.ErrTaskNotFound)
		if !store.IsNotFoundError(err) {
			log.Error("failed to get task",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
		}
		return nil, err
	}
	return &task, nil
}

// Update implements store.TaskStore.Update.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = :title,
		    status = :status,
		    priority = :priority,
		    category_id = :category_id,
		    due_date = :due_date,
		    completed_at = :completed_at,
		    notified = :notified,
		    updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, s.db, query, task)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}
