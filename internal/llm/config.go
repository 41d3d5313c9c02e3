package llm

import (
	"fmt"
	"time"
)

// Config holds generator provider configuration. Fields carry env tags so
// the server config can parse the whole tree with caarlos0/env.
type Config struct {
	// Provider selects which backend to use.
	// Values: "openai", "anthropic", "gemini", "mock"
	Provider string `env:"MILHAO_LLM_PROVIDER" envDefault:"openai"`

	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig

	// Timeout is the maximum duration for a single document generation.
	// Streaming chats run unbounded; the connection lifetime bounds them.
	Timeout time.Duration `env:"MILHAO_LLM_TIMEOUT" envDefault:"60s"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY"`
	Model  string `env:"MILHAO_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	// BaseURL overrides the endpoint for OpenAI-compatible APIs.
	BaseURL string `env:"MILHAO_OPENAI_BASE_URL"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `env:"ANTHROPIC_API_KEY"`
	Model  string `env:"MILHAO_ANTHROPIC_MODEL" envDefault:"claude-haiku"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"MILHAO_GEMINI_MODEL" envDefault:"gemini-flash"`
}

// Validate checks that the selected provider has its required credential.
// A missing credential is a startup-time configuration failure, never a
// runtime error.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock":
		// No credential needed.
	default:
		return fmt.Errorf("unknown generator provider: %q", c.Provider)
	}
	return nil
}
