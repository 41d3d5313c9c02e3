package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/genlevel"
	"github.com/abhisek/milhao/internal/tutor"
)

const sessionNotFound = "Game not found."

type startResponse struct {
	UUID    string `json:"uuid"`
	Message string `json:"message"`
}

type resetResponse struct {
	Message         string `json:"message"`
	FirstQuestionID any    `json:"first_question_id"`
}

type answerRequest struct {
	OptionIndex int `json:"option_index"`
}

type answerResponse struct {
	Result           string `json:"result"`
	Correct          bool   `json:"correct"`
	AccumulatedPrize string `json:"accumulated_prize"`
	Explanation      string `json:"explanation"`
	GameStatus       string `json:"game_status"`
}

type winResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type generationStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type prepareResponse struct {
	Message     string `json:"message"`
	ContextMode string `json:"context_mode"`
}

// handleStart allocates a fresh session.
func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	sess := s.store.Create()
	s.logger.Info("session created", "session", sess.ID)
	s.respondJSON(w, http.StatusOK, startResponse{
		UUID:    sess.ID,
		Message: s.settings.WelcomeMessage,
	})
}

// handleReset restarts the current level for the session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	firstID, ok := s.machine.Reset(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, sessionNotFound)
		return
	}

	s.logger.Info("session reset", "session", id)
	s.respondJSON(w, http.StatusOK, resetResponse{
		Message:         "Level restarted.",
		FirstQuestionID: firstID,
	})
}

// handleQuestion returns the question at the session cursor or the WIN
// sentinel once the sequence is exhausted.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	view, won, ok := s.machine.CurrentQuestion(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, sessionNotFound)
		return
	}
	if won {
		s.respondJSON(w, http.StatusOK, winResponse{
			Status:  "WIN",
			Message: "You won! Use /next-level to keep playing.",
		})
		return
	}

	s.respondJSON(w, http.StatusOK, view)
}

// handleAnswer scores one submission. Correct answers return 200,
// everything else 406 with the same payload shape.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, ok := s.machine.SubmitAnswer(id, req.OptionIndex)
	if !ok {
		s.respondError(w, http.StatusNotFound, sessionNotFound)
		return
	}

	resp := answerResponse{
		Result:           "Wrong!",
		Correct:          res.Correct,
		AccumulatedPrize: s.machine.FormatPrize(res.AccumulatedPrize),
		Explanation:      res.Explanation,
		GameStatus:       string(res.Status),
	}

	status := http.StatusNotAcceptable
	if res.Correct {
		resp.Result = "Correct!"
		status = http.StatusOK
	}

	s.respondJSON(w, status, resp)
}

// handleNextLevel triggers the generation pipeline. The 202 acknowledges
// the synchronous status flip, not the generation itself.
func (s *Server) handleNextLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	sess, ok := s.store.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, sessionNotFound)
		return
	}

	if err := s.pipeline.Trigger(sess); err != nil {
		if errors.Is(err, genlevel.ErrNotWon) {
			s.respondError(w, http.StatusBadRequest, "Win the current level first.")
			return
		}
		if errors.Is(err, genlevel.ErrInFlight) {
			s.respondError(w, http.StatusConflict, "Generation already in progress.")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "Could not start generation.")
		return
	}

	s.logger.Info("level generation triggered", "session", id)
	s.respondJSON(w, http.StatusAccepted, generationStatusResponse{
		Status:  string(game.GenerationGenerating),
		Message: "Next level generation started. Poll /next-level/{uuid}/status.",
	})
}

// handleGenerationStatus reports the background pipeline state.
func (s *Server) handleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	sess, ok := s.store.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, sessionNotFound)
		return
	}

	sess.Lock()
	status := sess.GenerationStatus
	sess.Unlock()

	s.respondJSON(w, http.StatusOK, generationStatusResponse{
		Status:  string(status),
		Message: generationMessage(status),
	})
}

func generationMessage(status game.GenerationStatus) string {
	switch status {
	case game.GenerationGenerating:
		return "Generating the next level..."
	case game.GenerationCompleted:
		return "Next level ready. Fetch /question/{uuid} to play."
	case game.GenerationError:
		return "Generation failed. Trigger /next-level/{uuid} to retry."
	default:
		return "No generation in progress."
	}
}

// handlePrepareTutor explicitly (re)initializes the tutor context. The
// relay also does this lazily on the first utterance, so calling this
// endpoint is optional.
func (s *Server) handlePrepareTutor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")

	sess, ok := s.store.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, sessionNotFound)
		return
	}

	tutor.InitContext(sess, s.settings.TutorPersona)

	sess.Lock()
	mode := string(sess.Status)
	sess.Unlock()

	s.respondJSON(w, http.StatusOK, prepareResponse{
		Message:     "Tutor ready.",
		ContextMode: mode,
	})
}
