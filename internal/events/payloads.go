package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// LifecycleAction is the kind of task mutation behind a TaskLifecycle event.
type LifecycleAction string

const (
	// ActionCreate marks the creation of a task.
	ActionCreate LifecycleAction = "create"

	// ActionComplete marks any status or field change of an existing task.
	ActionComplete LifecycleAction = "complete"
)

// TaskLifecyclePayload is the payload of a TaskLifecycle event.
// Prev is nil for ActionCreate.
type TaskLifecyclePayload struct {
	UserID     uuid.UUID            `json:"user_id"`
	Username   string               `json:"username"`
	Action     LifecycleAction      `json:"action"`
	Prev       *domain.TaskSnapshot `json:"prev,omitempty"`
	Next       domain.TaskSnapshot  `json:"next"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// TaskUpdatedPayload is the payload of a TaskUpdated event.
type TaskUpdatedPayload struct {
	ActorID uuid.UUID   `json:"actor_id"`
	Task    domain.Task `json:"task"`
}

// InvitationPayload is the payload of InvitationCreated and
// InvitationResponded events.
type InvitationPayload struct {
	InvitationID      uuid.UUID          `json:"invitation_id"`
	TaskID            uuid.UUID          `json:"task_id"`
	TaskTitle         string             `json:"task_title"`
	RecipientID       uuid.UUID          `json:"recipient_id"`
	RecipientUsername string             `json:"recipient_username"`
	ActorUsername     string             `json:"actor_username"`
	AccessLevel       domain.AccessLevel `json:"access_level,omitempty"`
	Accepted          bool               `json:"accepted"`
}

// AccessPayload is the payload of AccessChanged and AccessRemoved events.
type AccessPayload struct {
	TaskID            uuid.UUID          `json:"task_id"`
	TaskTitle         string             `json:"task_title"`
	RecipientID       uuid.UUID          `json:"recipient_id"`
	RecipientUsername string             `json:"recipient_username"`
	ActorUsername     string             `json:"actor_username"`
	AccessLevel       domain.AccessLevel `json:"access_level,omitempty"`
}
