package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasknotify/internal/events"
)

// EventHandler turns invitation and access events into notifications.
type EventHandler struct {
	notifier *Notifier
	logger   *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(notifier *Notifier, logger *slog.Logger) *EventHandler {
	if notifier == nil {
		panic("notifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notification_event_handler")),
	}
}

// Types returns the event types the handler reacts to.
func (h *EventHandler) Types() []events.Type {
	return []events.Type{
		events.InvitationCreated,
		events.InvitationResponded,
		events.AccessChanged,
		events.AccessRemoved,
	}
}

// HandleEvent implements events.Handler.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	var err error
	switch event.Type {
	case events.InvitationCreated:
		var p events.InvitationPayload
		if err = event.UnmarshalPayload(&p); err == nil {
			_, err = h.notifier.NotifyInvitation(ctx, p.RecipientID, p.RecipientUsername,
				p.InvitationID, p.TaskID, p.TaskTitle, p.ActorUsername, p.AccessLevel)
		}
	case events.InvitationResponded:
		var p events.InvitationPayload
		if err = event.UnmarshalPayload(&p); err == nil {
			_, err = h.notifier.NotifyInvitationResponse(ctx, p.RecipientID, p.RecipientUsername,
				p.InvitationID, p.TaskID, p.TaskTitle, p.ActorUsername, p.Accepted)
		}
	case events.AccessChanged:
		var p events.AccessPayload
		if err = event.UnmarshalPayload(&p); err == nil {
			_, err = h.notifier.NotifyAccessChanged(ctx, p.RecipientID, p.RecipientUsername,
				p.TaskID, p.TaskTitle, p.ActorUsername, p.AccessLevel)
		}
	case events.AccessRemoved:
		var p events.AccessPayload
		if err = event.UnmarshalPayload(&p); err == nil {
			_, err = h.notifier.NotifyAccessRemoved(ctx, p.RecipientID, p.RecipientUsername,
				p.TaskID, p.TaskTitle, p.ActorUsername)
		}
	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to handle %s event: %w", event.Type, err)
	}
	return nil
}

var _ events.Handler = (*EventHandler)(nil)
