package genlevel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/milhao/internal/game"
)

// buildSystemPrompt composes the generation instruction: the operator's
// configured instructions followed by the hard output contract.
func buildSystemPrompt(instructions string, quantity int) string {
	var b strings.Builder

	if instructions != "" {
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "You are a quiz API generator. Generate exactly %d new hard questions, "+
		"personalized to the player's attempt history and tutor conversation below. ", quantity)
	b.WriteString(`The output MUST be strictly a single valid JSON document with the structure: ` +
		`{"questions": [{"id": "gen_1", "text": "...", "options": ["A", "B", "C", "D"], ` +
		`"correct_option": "A", "explanation": "...", "prize": 10000}]}. ` +
		`Each question has exactly 4 options and correct_option repeats the text of the ` +
		`correct one verbatim. No prose outside the JSON.`)

	return b.String()
}

// buildUserPrompt serializes the session's attempt history and the visible
// (non-system) portion of the tutor transcript into the request body.
func buildUserPrompt(history []game.AttemptRecord, transcript []game.ChatMessage) string {
	var b strings.Builder

	b.WriteString("Attempt history for the level just played:\n")
	if len(history) == 0 {
		b.WriteString("none\n")
	} else if data, err := json.Marshal(history); err == nil {
		b.Write(data)
		b.WriteString("\n")
	}

	b.WriteString("\nTutor conversation about the attempt:\n")
	visible := 0
	for _, m := range transcript {
		if m.Role == game.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
		visible++
	}
	if visible == 0 {
		b.WriteString("none\n")
	}

	b.WriteString("\nGenerate the next level.")
	return b.String()
}
