// Package server exposes the game core over HTTP and WebSocket.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/abhisek/milhao/internal/config"
	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/genlevel"
	"github.com/abhisek/milhao/internal/tutor"
)

// Server wires the session store, state machine, generation pipeline and
// tutor relay behind the HTTP surface.
type Server struct {
	logger   *slog.Logger
	store    *game.Store
	machine  *game.Machine
	pipeline *genlevel.Pipeline
	relay    *tutor.Relay
	settings *config.Settings
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(logger *slog.Logger, store *game.Store, machine *game.Machine,
	pipeline *genlevel.Pipeline, relay *tutor.Relay, settings *config.Settings) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:   logger,
		store:    store,
		machine:  machine,
		pipeline: pipeline,
		relay:    relay,
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game runs without per-user identity; any origin may play.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes sets up all HTTP routes.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/start", s.handleStart)
	r.Post("/reset/{uuid}", s.handleReset)
	r.Get("/question/{uuid}", s.handleQuestion)
	r.Post("/answer/{uuid}", s.handleAnswer)
	r.Post("/next-level/{uuid}", s.handleNextLevel)
	r.Get("/next-level/{uuid}/status", s.handleGenerationStatus)
	r.Post("/chat/{uuid}/prepare", s.handlePrepareTutor)
	r.Get("/ws/chat/{uuid}", s.handleChat)

	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}
