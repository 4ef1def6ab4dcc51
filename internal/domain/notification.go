package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType tags what a notification is about.
type NotificationType string

// Notification types
const (
	NotificationTaskDeadline        NotificationType = "task_deadline"
	NotificationTaskInvitation      NotificationType = "task_invitation"
	NotificationUserAchievement     NotificationType = "user_achievement"
	NotificationInvitationResponse  NotificationType = "task_invitation_response"
	NotificationAccessRightsChanged NotificationType = "task_access_rights_changed"
	NotificationAccessRightsRemoved NotificationType = "task_access_rights_removed"
)

// DeadlineLayout formats the deadline field of a reminder.
const DeadlineLayout = "15:04"

var notificationTitles = map[NotificationType]string{
	NotificationTaskDeadline:        "Task deadline is approaching",
	NotificationTaskInvitation:      "You have been invited to a task",
	NotificationUserAchievement:     "Achievement unlocked",
	NotificationInvitationResponse:  "Your invitation was answered",
	NotificationAccessRightsChanged: "Your access to a task changed",
	NotificationAccessRightsRemoved: "Your access to a task was removed",
}

// Common validation errors for Notification
var (
	ErrEmptyNotificationUserID = errors.New("notification user ID cannot be empty")
	ErrInvalidNotificationType = errors.New("invalid notification type")
)

// Category returns the preference category that governs t. Access-right
// changes belong to no category and are always delivered.
func (t NotificationType) Category() NotificationCategory {
	switch t {
	case NotificationTaskDeadline:
		return CategoryTaskDeadline
	case NotificationTaskInvitation:
		return CategoryInvitation
	case NotificationUserAchievement:
		return CategoryAchievement
	default:
		return ""
	}
}

// Title returns the fixed title shown for notifications of type t.
func (t NotificationType) Title() string {
	return notificationTitles[t]
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	_, ok := notificationTitles[t]
	return ok
}

// NotificationMetadata is the structured payload of a notification. Which
// fields are set depends on the notification type.
type NotificationMetadata struct {
	TaskID          *uuid.UUID  `json:"taskId,omitempty"`
	TaskTitle       string      `json:"taskTitle,omitempty"`
	Deadline        string      `json:"deadline,omitempty"`
	InvitationID    *uuid.UUID  `json:"invitationId,omitempty"`
	Username        string      `json:"username,omitempty"`
	Action          string      `json:"action,omitempty"`
	AccessLevel     AccessLevel `json:"accessLevel,omitempty"`
	AchievementID   *uuid.UUID  `json:"achievementId,omitempty"`
	AchievementName string      `json:"achievementName,omitempty"`
}

// Value implements driver.Valuer so metadata is stored as a JSON document.
func (m NotificationMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSON metadata columns.
func (m *NotificationMetadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = NotificationMetadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported metadata source %T", ErrInvalidFormat, src)
	}
	return json.Unmarshal(data, m)
}

// Notification is a message addressed to one user.
type Notification struct {
	ID        uuid.UUID            `db:"id"         json:"id"`
	UserID    uuid.UUID            `db:"user_id"    json:"user_id"`
	Type      NotificationType     `db:"type"       json:"type"`
	Title     string               `db:"title"      json:"title"`
	Metadata  NotificationMetadata `db:"metadata"   json:"metadata"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	IsRead    bool                 `db:"is_read"    json:"is_read"`
	IsClosed  bool                 `db:"is_closed"  json:"is_closed"`
}

// NewNotification creates an unread, open notification with the type's
// default title.
func NewNotification(userID uuid.UUID, typ NotificationType, metadata NotificationMetadata) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     typ.Title(),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.UserID == uuid.Nil {
		return ErrEmptyNotificationUserID
	}
	if !n.Type.Valid() {
		return ErrInvalidNotificationType
	}
	return nil
}
