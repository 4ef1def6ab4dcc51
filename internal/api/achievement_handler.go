package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/service"
)

// AchievementHandler serves achievement definitions and progress.
type AchievementHandler struct {
	achievements service.AchievementService
	logger       *slog.Logger
}

// NewAchievementHandler creates a new AchievementHandler.
func NewAchievementHandler(achievements service.AchievementService, logger *slog.Logger) *AchievementHandler {
	if achievements == nil {
		panic("achievements cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for AchievementHandler")
	}
	return &AchievementHandler{
		achievements: achievements,
		logger:       logger.With(slog.String("component", "achievement_handler")),
	}
}

// ListMine handles GET /api/me/achievements.
func (h *AchievementHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := requireActor(w, r, log)
	if !ok {
		return
	}

	rows, err := h.achievements.ListProgress(r.Context(), actor.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load achievements")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(rows))
}

// Define handles POST /api/achievements.
func (h *AchievementHandler) Define(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := requireActor(w, r, log); !ok {
		return
	}

	var req DefineAchievementRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	achievement, seeded, err := h.achievements.Define(r.Context(), service.DefineAchievementInput{
		Key:         domain.AchievementKey(req.Key),
		Name:        req.Name,
		Description: req.Description,
		Target:      req.Target,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, DefineAchievementResponse{
		Achievement: achievement,
		Seeded:      seeded,
	})
}
