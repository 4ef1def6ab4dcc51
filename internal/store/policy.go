package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// PolicyStore gives access to per-user notification preferences.
// Version: 1.0
type PolicyStore interface {
	// GetNotificationPolicy returns the user's policy. A user who never saved
	// settings, or whose stored settings cannot be decoded, gets the default
	// policy. Returns ErrUserNotFound if the user does not exist.
	GetNotificationPolicy(ctx context.Context, userID uuid.UUID) (domain.NotificationPolicy, error)

	// UpdateNotificationPolicy replaces the user's policy.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateNotificationPolicy(ctx context.Context, userID uuid.UUID, policy domain.NotificationPolicy) error

	// MaxLeadTime returns the largest lead time, in minutes, over all users
	// with deadline reminders enabled, or domain.FallbackLookaheadMinutes
	// when there is no such user.
	MaxLeadTime(ctx context.Context) (int, error)
}
