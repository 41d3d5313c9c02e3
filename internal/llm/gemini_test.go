package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestBuildGeminiSchema_NestedObjects(t *testing.T) {
	def := map[string]any{
		"type":        "object",
		"description": "a batch",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":  map[string]any{"type": "string"},
						"prize": map[string]any{"type": "number"},
						"kind":  map[string]any{"type": "string", "enum": []any{"easy", "hard"}},
					},
					"required": []any{"text", "prize"},
				},
			},
		},
		"required": []any{"questions"},
	}

	schema := buildGeminiSchema(def)
	if schema.Type != genai.TypeObject {
		t.Errorf("Type = %v, want object", schema.Type)
	}
	if schema.Description != "a batch" {
		t.Errorf("Description = %q, want 'a batch'", schema.Description)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "questions" {
		t.Errorf("Required = %v, want [questions]", schema.Required)
	}

	questions := schema.Properties["questions"]
	if questions == nil || questions.Type != genai.TypeArray {
		t.Fatalf("questions schema = %+v, want array", questions)
	}
	item := questions.Items
	if item == nil || item.Type != genai.TypeObject {
		t.Fatalf("items schema = %+v, want object", item)
	}
	if item.Properties["prize"].Type != genai.TypeNumber {
		t.Errorf("prize Type = %v, want number", item.Properties["prize"].Type)
	}
	if kind := item.Properties["kind"]; len(kind.Enum) != 2 {
		t.Errorf("kind Enum = %v, want 2 values", kind.Enum)
	}
}

// Union types have no genai form and collapse to the first entry instead of
// silently leaving the property untyped.
func TestBuildGeminiSchema_TypeUnion(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type": []any{"string", "integer"},
	})
	if schema.Type != genai.TypeString {
		t.Errorf("Type = %v, want string (first union entry)", schema.Type)
	}
}
