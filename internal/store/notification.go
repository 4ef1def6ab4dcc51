package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// NotificationStore is the durable half of the notification sink.
// Version: 1.0
type NotificationStore interface {
	// Create saves a new notification.
	// Returns validation errors from the domain Notification if data is invalid.
	Create(ctx context.Context, notification *domain.Notification) error

	// ListForUser returns the user's notifications, newest first. When
	// onlyOpen is true closed notifications are left out.
	ListForUser(ctx context.Context, userID uuid.UUID, onlyOpen bool) ([]*domain.Notification, error)

	// Close marks one of the user's notifications closed.
	// Returns ErrNotificationNotFound if it does not exist or belongs to someone else.
	Close(ctx context.Context, userID, notificationID uuid.UUID) error

	// MarkRead marks one of the user's notifications read.
	// Returns ErrNotificationNotFound if it does not exist or belongs to someone else.
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error

	// DeleteClosed removes every closed notification and returns how many were removed.
	DeleteClosed(ctx context.Context) (int64, error)
}
