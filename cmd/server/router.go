package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/tasknotify/internal/api"
	apiMiddleware "github.com/phrazzld/tasknotify/internal/api/middleware"
	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/live"
	"github.com/phrazzld/tasknotify/internal/service/auth"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(corsHandler(app.config.Server.AllowedOrigins))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	accessHandler := api.NewAccessHandler(app.accessService, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notificationStore, app.policyStore, app.logger)
	achievementHandler := api.NewAchievementHandler(app.achievementService, app.logger)
	liveHandler := live.NewHandler(app.hub, apiMiddleware.GetUsername, app.config.Server.AllowedOrigins, app.logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.With(authMiddleware.AuthenticateWebSocket).Get("/ws", liveHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/tasks", taskHandler.Create)
		r.Patch("/tasks/{id}/status", taskHandler.UpdateStatus)
		r.Patch("/tasks/{id}/priority", taskHandler.UpdatePriority)
		r.Patch("/tasks/{id}/due-date", taskHandler.UpdateDueDate)

		r.Post("/tasks/{id}/invitations", accessHandler.Invite)
		r.Post("/invitations/{id}/accept", accessHandler.Accept)
		r.Post("/invitations/{id}/decline", accessHandler.Decline)
		r.Get("/tasks/{id}/access", accessHandler.ListGrants)
		r.Patch("/tasks/{id}/access/{userID}", accessHandler.ChangeLevel)
		r.Delete("/tasks/{id}/access/{userID}", accessHandler.Remove)

		r.Get("/notifications", notificationHandler.List)
		r.Post("/notifications/{id}/close", notificationHandler.Close)
		r.Post("/notifications/{id}/read", notificationHandler.MarkRead)

		r.Get("/me/notification-settings", notificationHandler.GetSettings)
		r.Put("/me/notification-settings", notificationHandler.UpdateSettings)
		r.Get("/me/achievements", achievementHandler.ListMine)

		r.With(apiMiddleware.RequireRole(auth.RoleAdmin)).Post("/achievements", achievementHandler.Define)
	})

	return r
}

// corsHandler allows the configured origins. With no origins configured
// cross-origin requests get no CORS headers.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
