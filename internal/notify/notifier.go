package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// TopicNotifications is the live topic new notifications are pushed to.
const TopicNotifications = "/topic/notifications"

// DefaultDeliveryTimeout bounds one persist-and-push when none is configured.
const DefaultDeliveryTimeout = 5 * time.Second

// Pusher delivers a payload to a user's live connections. Delivery is best
// effort: an error means the payload did not reach the user right now.
type Pusher interface {
	Push(ctx context.Context, username, topic string, payload any) error
}

// Notifier creates notifications: it persists each one and then pushes it
// to the recipient's live connection.
type Notifier struct {
	notifications   store.NotificationStore
	policies        store.PolicyStore
	pusher          Pusher
	deliveryTimeout time.Duration
	logger          *slog.Logger
}

// NewNotifier creates a Notifier. A non-positive deliveryTimeout falls back
// to DefaultDeliveryTimeout.
func NewNotifier(
	notifications store.NotificationStore,
	policies store.PolicyStore,
	pusher Pusher,
	deliveryTimeout time.Duration,
	logger *slog.Logger,
) *Notifier {
	if notifications == nil || policies == nil || pusher == nil {
		panic("notifier dependencies cannot be nil")
	}
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		notifications:   notifications,
		policies:        policies,
		pusher:          pusher,
		deliveryTimeout: deliveryTimeout,
		logger:          logger.With(slog.String("component", "notifier")),
	}
}

// Create persists a notification for the user and pushes it live. Only the
// persist step can fail the call; push failures are logged. The whole
// delivery is bounded by the notifier's delivery timeout.
func (n *Notifier) Create(
	ctx context.Context,
	userID uuid.UUID,
	username string,
	typ domain.NotificationType,
	metadata domain.NotificationMetadata,
) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, n.logger)

	notification, err := domain.NewNotification(userID, typ, metadata)
	if err != nil {
		return nil, fmt.Errorf("invalid notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.deliveryTimeout)
	defer cancel()

	if err := n.notifications.Create(ctx, notification); err != nil {
		log.Error("failed to save notification",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("type", string(typ)))
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	if err := n.pusher.Push(ctx, username, TopicNotifications, notification); err != nil {
		log.Warn("failed to push notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", notification.ID.String()),
			slog.String("username", username))
	}

	log.Debug("notification created",
		slog.String("notification_id", notification.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("type", string(typ)))

	return notification, nil
}

// notifyIfEnabled creates the notification when the recipient's policy
// allows its category. A policy that cannot be read counts as disabled.
// Returns nil, nil when the notification was suppressed.
func (n *Notifier) notifyIfEnabled(
	ctx context.Context,
	userID uuid.UUID,
	username string,
	typ domain.NotificationType,
	metadata domain.NotificationMetadata,
) (*domain.Notification, error) {
	if category := typ.Category(); category != "" {
		policy, err := n.policies.GetNotificationPolicy(ctx, userID)
		if err != nil {
			logger.FromContextOrDefault(ctx, n.logger).Warn("policy lookup failed, suppressing notification",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()),
				slog.String("type", string(typ)))
			return nil, nil
		}
		if !policy.Enabled(category) {
			return nil, nil
		}
	}
	return n.Create(ctx, userID, username, typ, metadata)
}

// NotifyDeadline creates a deadline reminder for the recipient. The caller
// is responsible for evaluating the recipient's policy and window.
func (n *Notifier) NotifyDeadline(ctx context.Context, r domain.Recipient, task *domain.Task) (*domain.Notification, error) {
	taskID := task.ID
	metadata := domain.NotificationMetadata{
		TaskID:    &taskID,
		TaskTitle: task.Title,
	}
	if task.DueDate != nil {
		metadata.Deadline = task.DueDate.Format(domain.DeadlineLayout)
	}
	return n.Create(ctx, r.UserID, r.Username, domain.NotificationTaskDeadline, metadata)
}

// NotifyInvitation tells a user they were invited to a task.
func (n *Notifier) NotifyInvitation(
	ctx context.Context,
	recipientID uuid.UUID,
	recipientUsername string,
	invitationID uuid.UUID,
	taskID uuid.UUID,
	taskTitle string,
	inviter string,
	level domain.AccessLevel,
) (*domain.Notification, error) {
	return n.notifyIfEnabled(ctx, recipientID, recipientUsername, domain.NotificationTaskInvitation, domain.NotificationMetadata{
		TaskID:       &taskID,
		TaskTitle:    taskTitle,
		InvitationID: &invitationID,
		Username:     inviter,
		AccessLevel:  level,
	})
}

// NotifyInvitationResponse tells the inviter how an invitation was answered.
func (n *Notifier) NotifyInvitationResponse(
	ctx context.Context,
	inviterID uuid.UUID,
	inviterUsername string,
	invitationID uuid.UUID,
	taskID uuid.UUID,
	taskTitle string,
	invitee string,
	accepted bool,
) (*domain.Notification, error) {
	action := "declined"
	if accepted {
		action = "accepted"
	}
	return n.notifyIfEnabled(ctx, inviterID, inviterUsername, domain.NotificationInvitationResponse, domain.NotificationMetadata{
		TaskID:       &taskID,
		TaskTitle:    taskTitle,
		InvitationID: &invitationID,
		Username:     invitee,
		Action:       action,
	})
}

// NotifyAchievement tells a user they unlocked an achievement.
func (n *Notifier) NotifyAchievement(
	ctx context.Context,
	userID uuid.UUID,
	username string,
	progress *domain.UserAchievementProgress,
) (*domain.Notification, error) {
	achievementID := progress.AchievementID
	return n.notifyIfEnabled(ctx, userID, username, domain.NotificationUserAchievement, domain.NotificationMetadata{
		AchievementID:   &achievementID,
		AchievementName: progress.Name,
	})
}

// NotifyAccessChanged tells a collaborator their access level changed.
// Access notifications ignore the recipient's policy.
func (n *Notifier) NotifyAccessChanged(
	ctx context.Context,
	recipientID uuid.UUID,
	recipientUsername string,
	taskID uuid.UUID,
	taskTitle string,
	actor string,
	level domain.AccessLevel,
) (*domain.Notification, error) {
	return n.notifyIfEnabled(ctx, recipientID, recipientUsername, domain.NotificationAccessRightsChanged, domain.NotificationMetadata{
		TaskID:      &taskID,
		TaskTitle:   taskTitle,
		Username:    actor,
		AccessLevel: level,
	})
}

// NotifyAccessRemoved tells a collaborator they lost access to a task.
// Access notifications ignore the recipient's policy.
func (n *Notifier) NotifyAccessRemoved(
	ctx context.Context,
	recipientID uuid.UUID,
	recipientUsername string,
	taskID uuid.UUID,
	taskTitle string,
	actor string,
) (*domain.Notification, error) {
	return n.notifyIfEnabled(ctx, recipientID, recipientUsername, domain.NotificationAccessRightsRemoved, domain.NotificationMetadata{
		TaskID:    &taskID,
		TaskTitle: taskTitle,
		Username:  actor,
	})
}
