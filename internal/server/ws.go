package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// closeSessionNotFound is sent when the chat connection references an
// unknown session id. Distinct from normal closure so clients can tell a
// stale id from a finished conversation.
const closeSessionNotFound = 4000

type errorFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// handleChat upgrades the connection and hands it to the tutor relay. The
// relay owns the connection until the peer disconnects.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}
	defer conn.Close()

	sess, ok := s.store.Get(id)
	if !ok {
		// Pre-exchange error frame, then close with the distinct code.
		_ = conn.WriteJSON(errorFrame{Type: "error", Content: sessionNotFound})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeSessionNotFound, "session not found"),
			time.Now().Add(time.Second))
		return
	}

	s.logger.Info("chat opened", "session", id)
	if err := s.relay.Run(r.Context(), conn, sess); err != nil {
		s.logger.Error("chat relay aborted", "session", id, "error", err)
		return
	}
	s.logger.Info("chat closed", "session", id)
}
