package genlevel

import "github.com/abhisek/milhao/internal/llm"

// BatchSchema defines the JSON shape of a generated question batch: a
// single top-level "questions" array whose every element carries the full
// question field set. Both object levels close additionalProperties, which
// OpenAI's strict structured-output mode requires of every object in the
// schema. Batch length is checked separately against the configured
// quantity.
var BatchSchema = &llm.Schema{
	Name:        "question-batch",
	Description: "A batch of multiple-choice trivia questions for the next level",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"description": "The generated questions, in play order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{
							"type":        "string",
							"description": "Question identifier, e.g. \"gen_1\"",
						},
						"text": map[string]any{
							"type":        "string",
							"description": "The question prompt shown to the player",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"minItems":    4,
							"maxItems":    4,
							"description": "Exactly 4 answer options",
						},
						"correct_option": map[string]any{
							"type":        "string",
							"description": "The text of the correct option, verbatim",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the correct option is right, shown after answering",
						},
						"prize": map[string]any{
							"type":        "number",
							"description": "Prize value awarded for this question",
						},
					},
					"required":             []any{"id", "text", "options", "correct_option", "explanation", "prize"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
