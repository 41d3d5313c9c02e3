// Package genlevel is the background pipeline that asks the content
// generator for a fresh question batch personalized to a finished level,
// validates it and installs it into the session as the next level.
package genlevel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/llm"
)

// maxAttempts bounds the retry loop. Attempts are back-to-back: the bound
// is attempt count, not wall-clock time, to cap tutoring-session latency
// and cost.
const maxAttempts = 3

// ErrNotWon is returned by Trigger when the session has not won the
// current level.
var ErrNotWon = errors.New("current level not won")

// ErrInFlight is returned by Trigger when a generation run is already in
// progress for the session.
var ErrInFlight = errors.New("generation already in progress")

// Config tunes one pipeline instance.
type Config struct {
	// Quantity is the exact number of questions per generated batch.
	Quantity int

	// Instructions is the operator-configured generation preamble from
	// the settings file.
	Instructions string

	// KnowledgeBase is the opaque retrieval handle passed to the
	// generator. Empty disables retrieval.
	KnowledgeBase string

	MaxTokens   int
	Temperature float64
}

// Pipeline produces and installs generated levels.
type Pipeline struct {
	gen    llm.Generator
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline. A nil logger falls back to slog.Default.
func New(gen llm.Generator, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Quantity <= 0 {
		cfg.Quantity = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Pipeline{gen: gen, cfg: cfg, logger: logger}
}

// Trigger starts a generation run for the session. The generating status is
// set synchronously before the run goes async: that flip is the caller's
// acknowledgment. Returns ErrNotWon when the session status is not won and
// ErrInFlight while a previous run is still going; at most one run per
// session is in flight at a time.
func (p *Pipeline) Trigger(s *game.Session) error {
	s.Lock()
	if s.Status != game.StatusWon {
		s.Unlock()
		return ErrNotWon
	}
	if s.GenerationStatus == game.GenerationGenerating {
		s.Unlock()
		return ErrInFlight
	}
	s.GenerationStatus = game.GenerationGenerating
	history := s.HistorySnapshot()
	transcript := s.TranscriptSnapshot(false)
	s.Unlock()

	go p.run(s, history, transcript)
	return nil
}

// run performs up to maxAttempts generation attempts and either installs a
// full batch atomically or marks the session's generation as failed.
// Partial installation never happens.
func (p *Pipeline) run(s *game.Session, history []game.AttemptRecord, transcript []game.ChatMessage) {
	ctx := llm.WithPurpose(context.Background(), "level-gen")

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		batch, err := p.generate(ctx, history, transcript)
		if err == nil {
			p.install(s, batch)
			p.logger.Info("generated level installed",
				"session", s.ID, "questions", len(batch), "attempt", attempt)
			return
		}

		p.logger.Warn("level generation attempt failed",
			"session", s.ID, "attempt", attempt, "error", err)

		if !recoverable(err) {
			break
		}
	}

	s.Lock()
	s.GenerationStatus = game.GenerationError
	s.Unlock()
}

// generate performs one attempt: prompt, call, fence strip, parse, validate.
func (p *Pipeline) generate(ctx context.Context, history []game.AttemptRecord, transcript []game.ChatMessage) ([]game.Question, error) {
	doc, err := p.gen.GenerateDocument(ctx, llm.DocumentRequest{
		System:        buildSystemPrompt(p.cfg.Instructions, p.cfg.Quantity),
		User:          buildUserPrompt(history, transcript),
		Schema:        BatchSchema,
		KnowledgeBase: p.cfg.KnowledgeBase,
		MaxTokens:     p.cfg.MaxTokens,
		Temperature:   p.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}

	clean := stripFences(doc.Content)

	// Re-validate locally: the mock and fenced responses bypass the
	// provider-side schema check.
	if err := llm.ValidateDocument(BatchSchema, clean); err != nil {
		return nil, err
	}

	var payload struct {
		Questions []game.Question `json:"questions"`
	}
	if err := json.Unmarshal(clean, &payload); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: clean, Err: fmt.Errorf("parse batch: %w", err)}
	}

	if len(payload.Questions) != p.cfg.Quantity {
		return nil, &llm.ErrInvalidResponse{
			Content: clean,
			Err:     fmt.Errorf("expected %d questions, got %d", p.cfg.Quantity, len(payload.Questions)),
		}
	}

	return payload.Questions, nil
}

// install replaces the session's question sequence with the new batch and
// starts the next level: cursor and history reset, prize carried over.
func (p *Pipeline) install(s *game.Session, batch []game.Question) {
	s.Lock()
	s.Generated = batch
	s.Mode = game.ModeGenerated
	s.QuestionIndex = 0
	s.History = nil
	s.Status = game.StatusActive
	s.GenerationStatus = game.GenerationCompleted
	s.Unlock()
}

// recoverable reports whether another attempt may succeed. Transport,
// rate-limit, parse and schema failures are retried; context cancellation,
// max-tokens truncation (a configuration problem that repeats identically)
// and anything unclassified (likely a programming error) are not.
func recoverable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var maxTok *llm.ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}

	var rateLimit *llm.ErrRateLimit
	if errors.As(err, &rateLimit) {
		return true
	}
	var unavailable *llm.ErrProviderUnavailable
	if errors.As(err, &unavailable) {
		return true
	}
	var invalid *llm.ErrInvalidResponse
	if errors.As(err, &invalid) {
		return true
	}

	return false
}

// stripFences removes markdown code-fence wrapping some models emit around
// JSON documents.
func stripFences(raw json.RawMessage) json.RawMessage {
	s := string(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return json.RawMessage(strings.TrimSpace(s))
}
