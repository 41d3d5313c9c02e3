// Package tutor maintains the per-session chat transcript and drives the
// streaming exchange between the player and the content generator.
package tutor

import (
	"encoding/json"
	"fmt"

	"github.com/abhisek/milhao/internal/game"
)

// DefaultPersona is used when the settings file provides none.
const DefaultPersona = "You are a wise mentor."

// RetryNote is appended to the system framing when a player restarts the
// same question set.
const RetryNote = "The player chose to retry the same question set from the start."

// InitContext rebuilds the session's tutor context: a single system message
// derived from the persona, the game outcome and the serialized attempt
// history. It replaces the transcript wholesale, discarding any prior
// conversation. Extra notes are appended to the framing, one per line.
func InitContext(s *game.Session, persona string, notes ...string) {
	if persona == "" {
		persona = DefaultPersona
	}

	s.Lock()
	defer s.Unlock()

	content := buildSystemMessage(persona, s.Status, s.History)
	for _, n := range notes {
		content += "\n" + n
	}

	s.Transcript = []game.ChatMessage{{Role: game.RoleSystem, Content: content}}
}

// buildSystemMessage frames the assistant by outcome: explain mistakes
// after a loss, congratulate after a win, help with open questions while
// the level is still in progress.
func buildSystemMessage(persona string, status game.Status, history []game.AttemptRecord) string {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		historyJSON = []byte("[]")
	}

	switch status {
	case game.StatusLost:
		return fmt.Sprintf("%s The player LOST.\nHistory: %s\nMission: explain the mistake.",
			persona, historyJSON)
	case game.StatusWon:
		return fmt.Sprintf("%s The player WON.\nHistory: %s\nMission: congratulate them.",
			persona, historyJSON)
	default:
		return fmt.Sprintf("%s The game is in progress. Help the player with open questions.\nHistory so far: %s",
			persona, historyJSON)
	}
}
