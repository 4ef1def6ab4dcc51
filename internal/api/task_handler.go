package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/service"
)

// TaskHandler exposes the task lifecycle operations.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, ok := requireActor(w, r, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), actor, service.CreateTaskInput{
		Title:      req.Title,
		ParentID:   req.ParentID,
		Priority:   domain.TaskPriority(req.Priority),
		CategoryID: req.CategoryID,
		DueDate:    req.DueDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// UpdateStatus handles PATCH /api/tasks/{id}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), actor, taskID, domain.TaskStatus(req.Status))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdatePriority handles PATCH /api/tasks/{id}/priority.
func (h *TaskHandler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdatePriorityRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	task, err := h.tasks.UpdatePriority(r.Context(), actor, taskID, domain.TaskPriority(req.Priority))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdateDueDate handles PATCH /api/tasks/{id}/due-date.
func (h *TaskHandler) UpdateDueDate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	actor, taskID, ok := requireActorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateDueDateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	task, err := h.tasks.UpdateDueDate(r.Context(), actor, taskID, req.DueDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// decodeRequest decodes and validates the body, writing a 400 on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}
