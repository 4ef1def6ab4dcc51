package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names a kind of event.
type Type string

// Event types published by the task services.
const (
	// TaskLifecycle carries a task transition for the achievement engine.
	TaskLifecycle Type = "task.lifecycle"

	// TaskUpdated carries the current task state for live fan-out.
	TaskUpdated Type = "task.updated"

	// InvitationCreated is published when a user is invited to a task.
	InvitationCreated Type = "invitation.created"

	// InvitationResponded is published when an invitee accepts or declines.
	InvitationResponded Type = "invitation.responded"

	// AccessChanged is published when a collaborator's access level changes.
	AccessChanged Type = "access.changed"

	// AccessRemoved is published when a collaborator loses access to a task.
	AccessRemoved Type = "access.removed"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type selects the subscribers that receive the event
	Type Type `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType Type, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Handler defines an interface for components that can handle events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Publisher defines an interface for components that can emit events.
type Publisher interface {
	// Publish hands the event to every handler subscribed to its type.
	Publish(ctx context.Context, event *Event) error
}
