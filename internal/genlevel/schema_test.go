package genlevel

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/milhao/internal/llm"
)

func TestBatchSchema_AcceptsFullBatch(t *testing.T) {
	if err := llm.ValidateDocument(BatchSchema, json.RawMessage(validBatch)); err != nil {
		t.Fatalf("expected valid batch to pass, got: %v", err)
	}
}

func TestBatchSchema_RejectsExtraTopLevelKey(t *testing.T) {
	raw := json.RawMessage(`{"questions": [], "commentary": "here you go"}`)
	err := llm.ValidateDocument(BatchSchema, raw)
	if err == nil {
		t.Fatal("expected extra top-level key to fail validation")
	}
	var invErr *llm.ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestBatchSchema_RejectsExtraQuestionKey(t *testing.T) {
	raw := json.RawMessage(`{
		"questions": [
			{
				"id": "gen_1",
				"text": "q",
				"options": ["a", "b", "c", "d"],
				"correct_option": "a",
				"explanation": "e",
				"prize": 100,
				"difficulty": "hard"
			}
		]
	}`)
	if err := llm.ValidateDocument(BatchSchema, raw); err == nil {
		t.Fatal("expected extra question key to fail validation")
	}
}

func TestBatchSchema_RejectsWrongOptionCount(t *testing.T) {
	raw := json.RawMessage(`{
		"questions": [
			{
				"id": "gen_1",
				"text": "q",
				"options": ["a", "b"],
				"correct_option": "a",
				"explanation": "e",
				"prize": 100
			}
		]
	}`)
	if err := llm.ValidateDocument(BatchSchema, raw); err == nil {
		t.Fatal("expected 2-option question to fail validation")
	}
}

// Every object level must close additionalProperties: OpenAI's strict
// structured-output mode rejects schemas that leave any object open.
func TestBatchSchema_ClosesAllObjects(t *testing.T) {
	def := BatchSchema.Definition
	if v, ok := def["additionalProperties"].(bool); !ok || v {
		t.Error("top-level object must set additionalProperties: false")
	}

	questions := def["properties"].(map[string]any)["questions"].(map[string]any)
	items := questions["items"].(map[string]any)
	if v, ok := items["additionalProperties"].(bool); !ok || v {
		t.Error("question items object must set additionalProperties: false")
	}
}
