package llm

import (
	"context"
	"encoding/json"
)

// Generator is the content-generation capability the game core depends on.
// It exposes exactly two operations: a streaming chat reply and a one-shot
// structured JSON document. Implementations are selected at construction
// time; the core never inspects the concrete type.
type Generator interface {
	// GenerateDocument sends a prompt and returns a single structured
	// response. The request's Schema field, when set, instructs the
	// provider to use its native structured-output mechanism and the
	// returned Content is the validated JSON.
	GenerateDocument(ctx context.Context, req DocumentRequest) (*Document, error)

	// StreamChat opens a chat completion over the given transcript and
	// returns a lazy, finite, non-restartable sequence of text fragments.
	// The caller consumes fragments with Recv until io.EOF and must Close
	// the stream; cancelling ctx aborts the stream upstream.
	StreamChat(ctx context.Context, req ChatRequest) (ChatStream, error)

	// ModelID returns the model identifier this generator is configured
	// to use.
	ModelID() string
}

// ChatStream yields text fragments as the provider produces them.
// Recv returns io.EOF once the reply is exhausted. A stream cannot be
// restarted; open a new one per exchange.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// DocumentRequest describes a one-shot structured generation.
type DocumentRequest struct {
	// System sets the generator's role and output constraints.
	System string

	// User is the request body, typically serialized game context.
	User string

	// Schema is the JSON Schema the response must conform to. When nil,
	// Content is raw text as json.RawMessage.
	Schema *Schema

	// KnowledgeBase is an opaque retrieval handle (e.g. a vector store id)
	// forwarded to providers that support it. Empty disables retrieval.
	KnowledgeBase string

	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// ChatRequest describes a streaming chat exchange.
type ChatRequest struct {
	// Messages is the full transcript including the system message, in
	// order. Providers map the system message to their native mechanism.
	Messages []Message

	// KnowledgeBase is the same opaque retrieval handle as on
	// DocumentRequest.
	KnowledgeBase string

	MaxTokens int
}

// Message is a single transcript entry.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the generator.
type Schema struct {
	// Name identifies this schema (used as tool name for Anthropic,
	// schema name for OpenAI). Kebab-case, e.g. "question-batch".
	Name string

	// Description is sent to the provider to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Document holds a structured generation result.
type Document struct {
	// Content is the generated output. When a Schema was provided in the
	// request, this is the validated JSON object.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// splitSystem separates the leading system message from the rest of the
// transcript for providers whose APIs take the system prompt out of band.
func splitSystem(msgs []Message) (system string, rest []Message) {
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		return msgs[0].Content, msgs[1:]
	}
	return "", msgs
}
