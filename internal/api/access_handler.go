package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/service"
)

// AccessHandler exposes task invitations and collaborator access.
type AccessHandler struct {
	access service.AccessService
	logger *slog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(access service.AccessService, logger *slog.Logger) *AccessHandler {
	if access == nil {
		panic("access cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for AccessHandler")
	}
	return &AccessHandler{
		access: access,
		logger: logger.With(slog.String("component", "access_handler")),
	}
}

// Invite handles POST /api/tasks/{id}/invitations.
func (h *AccessHandler) Invite(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req InviteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	inv, err := h.access.Invite(r.Context(), actor, taskID, req.UserID, domain.AccessLevel(req.Level))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, inv)
}

// Accept handles POST /api/invitations/{id}/accept.
func (h *AccessHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// Decline handles POST /api/invitations/{id}/decline.
func (h *AccessHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *AccessHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, invitationID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	inv, err := h.access.Respond(r.Context(), actor, invitationID, accept)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, inv)
}

// ListGrants handles GET /api/tasks/{id}/access.
func (h *AccessHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	grants, err := h.access.ListGrants(r.Context(), actor, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if grants == nil {
		grants = []domain.AccessGrant{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, grants)
}

// ChangeLevel handles PATCH /api/tasks/{id}/access/{userID}.
func (h *AccessHandler) ChangeLevel(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	userID, err := getPathUUID(r, "userID")
	if err != nil {
		log.Warn("invalid userID", slog.String("value", chi.URLParam(r, "userID")))
		HandleAPIError(w, r, err, "")
		return
	}

	var req ChangeAccessRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	grant, err := h.access.ChangeLevel(r.Context(), actor, taskID, userID, domain.AccessLevel(req.Level))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, grant)
}

// Remove handles DELETE /api/tasks/{id}/access/{userID}.
func (h *AccessHandler) Remove(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	userID, err := getPathUUID(r, "userID")
	if err != nil {
		log.Warn("invalid userID", slog.String("value", chi.URLParam(r, "userID")))
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.access.Remove(r.Context(), actor, taskID, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
