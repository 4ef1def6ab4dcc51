package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// PostgresNotificationStore implements store.NotificationStore.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgresNotificationStore.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create implements store.NotificationStore.Create.
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, metadata, created_at, is_read, is_closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Metadata, n.CreatedAt, n.IsRead, n.IsClosed)
	if err != nil {
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("user_id", n.UserID.String()),
			slog.String("type", string(n.Type)))
		return MapError(err)
	}

	log.Debug("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", n.UserID.String()),
		slog.String("type", string(n.Type)))
	return nil
}

// ListForUser implements store.NotificationStore.ListForUser.
func (s *PostgresNotificationStore) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	onlyOpen bool,
) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, type, title, metadata, created_at, is_read, is_closed
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR is_closed = FALSE)
		ORDER BY created_at DESC
	`

	notifications := []*domain.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, userID, onlyOpen); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return notifications, nil
}

// Close implements store.NotificationStore.Close.
func (s *PostgresNotificationStore) Close(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.setFlag(ctx, "is_closed", userID, notificationID)
}

// MarkRead implements store.NotificationStore.MarkRead.
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.setFlag(ctx, "is_read", userID, notificationID)
}

// setFlag sets one boolean column. column is always a constant from this file.
func (s *PostgresNotificationStore) setFlag(ctx context.Context, column string, userID, id uuid.UUID) error {
	query := `UPDATE notifications SET ` + column + ` = TRUE WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update notification",
			slog.String("error", err.Error()),
			slog.String("column", column),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotificationNotFound)
}

// DeleteClosed implements store.NotificationStore.DeleteClosed.
func (s *PostgresNotificationStore) DeleteClosed(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE is_closed = TRUE`)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete closed notifications",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return result.RowsAffected()
}
