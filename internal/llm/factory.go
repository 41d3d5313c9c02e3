package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/milhao/internal/requestlog"
)

// NewGenerator creates a Generator from configuration. When log is non-nil
// the generator is wrapped with request logging.
func NewGenerator(ctx context.Context, cfg Config, log *requestlog.Store) (Generator, error) {
	var base Generator
	var err error

	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIGenerator(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicGenerator(cfg.Anthropic)
	case "gemini":
		base, err = NewGeminiGenerator(ctx, cfg.Gemini)
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s generator: %w", cfg.Provider, err)
	}

	if log != nil {
		return WithLogging(base, log), nil
	}
	return base, nil
}
