package live

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
)

// IdentityFunc returns the authenticated username of a request.
type IdentityFunc func(r *http.Request) (string, bool)

// Handler upgrades authenticated requests to websocket connections and
// registers them with a Hub.
type Handler struct {
	hub      *Hub
	identify IdentityFunc
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a Handler. allowedOrigins lists the origins browsers
// may connect from; "*" allows any origin and an empty list only allows
// same-origin requests.
func NewHandler(hub *Hub, identify IdentityFunc, allowedOrigins []string, logger *slog.Logger) *Handler {
	if hub == nil {
		panic("hub cannot be nil")
	}
	if identify == nil {
		panic("identify cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		hub:      hub,
		identify: identify,
		logger:   logger.With(slog.String("component", "live_handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	username, ok := h.identify(r)
	if !ok || username == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	if err := h.hub.Register(username, conn); err != nil {
		log.Warn("failed to register live connection",
			slog.String("username", username),
			slog.String("error", err.Error()))
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
