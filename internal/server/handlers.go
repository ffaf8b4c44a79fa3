// Package server exposes the admin HTTP surface: registry and stats
// snapshots, kick/broadcast operations, and the live event feed.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// AdminAPI serves the operator dashboard endpoints. Access control is the
// deployment's responsibility; the API itself carries no authentication.
type AdminAPI struct {
	server   *Server
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewAdminAPI creates the admin surface for a running chat server.
func NewAdminAPI(srv *Server, cfg *Config, log logrus.FieldLogger) *AdminAPI {
	checker := newOriginChecker(cfg.AllowedOrigins, log)

	return &AdminAPI{
		server: srv,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checker.check,
		},
	}
}

// Routes wires the admin endpoints into a chi router.
func (a *AdminAPI) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Get("/sessions", a.handleSessions)
		api.Get("/stats", a.handleStats)
		api.Post("/kick", a.handleKick)
		api.Post("/broadcast", a.handleBroadcast)
	})
	r.Get("/ws", a.handleEvents)

	return r
}

func (a *AdminAPI) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Cyber Chat server is running!"))
}

func (a *AdminAPI) handleSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := a.server.Registry().Snapshot()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}
	a.respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(infos),
		"sessions": infos,
	})
}

func (a *AdminAPI) handleStats(w http.ResponseWriter, _ *http.Request) {
	a.respondJSON(w, http.StatusOK, a.server.Stats().Snapshot())
}

type kickRequest struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

func (a *AdminAPI) handleKick(w http.ResponseWriter, r *http.Request) {
	var req kickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		a.respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := a.server.Kick(req.Username, req.Reason); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			a.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		a.respondError(w, http.StatusInternalServerError, "kick failed")
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]string{"kicked": req.Username})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (a *AdminAPI) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		a.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	a.server.AdminBroadcast(req.Message)
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// handleEvents upgrades the request and streams server events as JSON
// until the client disconnects.
func (a *AdminAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			a.log.WithError(err).Debug("closing event feed connection")
		}
	}()

	events, cancel := a.server.Events().Subscribe()
	defer cancel()

	// Reader goroutine: its only job is to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				if !isExpectedCloseError(err) {
					a.log.WithError(err).Debug("writing event to dashboard")
				}
				return
			}
		}
	}
}

func (a *AdminAPI) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.WithError(err).Debug("writing JSON response")
	}
}

func (a *AdminAPI) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, map[string]string{"error": message})
}
