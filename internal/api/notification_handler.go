package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// NotificationHandler serves the caller's notifications and notification
// settings.
type NotificationHandler struct {
	notifications store.NotificationStore
	policies      store.PolicyStore
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(
	notifications store.NotificationStore,
	policies store.PolicyStore,
	logger *slog.Logger,
) *NotificationHandler {
	if notifications == nil {
		panic("notifications cannot be nil")
	}
	if policies == nil {
		panic("policies cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for NotificationHandler")
	}
	return &NotificationHandler{
		notifications: notifications,
		policies:      policies,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// List handles GET /api/notifications. With onlyOpen=true closed
// notifications are left out.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := requireActor(w, r, log)
	if !ok {
		return
	}

	onlyOpen := false
	if raw := r.URL.Query().Get("onlyOpen"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			HandleAPIError(w, r, domain.NewValidationError("onlyOpen", "must be a boolean", domain.ErrInvalidFormat), "")
			return
		}
		onlyOpen = v
	}

	list, err := h.notifications.ListForUser(r.Context(), actor.UserID, onlyOpen)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load notifications")
		return
	}
	if list == nil {
		list = []*domain.Notification{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// Close handles POST /api/notifications/{id}/close.
func (h *NotificationHandler) Close(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, id, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.notifications.Close(r.Context(), actor.UserID, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("notification closed", slog.String("notification_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, id, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), actor.UserID, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/me/notification-settings.
func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := requireActor(w, r, log)
	if !ok {
		return
	}

	policy, err := h.policies.GetNotificationPolicy(r.Context(), actor.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load notification settings")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, policy)
}

// UpdateSettings handles PUT /api/me/notification-settings.
func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := requireActor(w, r, log)
	if !ok {
		return
	}

	var req NotificationSettingsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	policy := req.Policy()
	if err := policy.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.policies.UpdateNotificationPolicy(r.Context(), actor.UserID, policy); err != nil {
		HandleAPIError(w, r, err, "Failed to save notification settings")
		return
	}

	log.Info("notification settings updated",
		slog.Int("lead_time_minutes", policy.LeadTimeMinutes))
	shared.RespondWithJSON(w, r, http.StatusOK, policy)
}
