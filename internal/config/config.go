// Package config loads server configuration from the environment and the
// game settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/llm"
)

// Config is the process configuration, parsed from environment variables.
// A .env file in the working directory is loaded first when present.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// SettingsPath points at the game settings JSON file.
	SettingsPath string `env:"MILHAO_SETTINGS" envDefault:"game_config.json"`

	// DBPath overrides the request log location. Empty resolves to the
	// XDG data directory.
	DBPath string `env:"MILHAO_DB"`

	LLM llm.Config
}

// Load parses the environment into a Config and validates the generator
// credential. A missing credential fails startup here rather than at first
// use.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars win anyway.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Settings is the operator-authored game configuration: presentation
// strings, tutor prompts, the retrieval handle and the static question
// catalog.
type Settings struct {
	WelcomeMessage         string          `json:"welcome_message"`
	CurrencySymbol         string          `json:"currency_symbol"`
	TutorPersona           string          `json:"tutor_persona"`
	GenerationInstructions string          `json:"tutor_question_generations_instructions"`
	VectorStoreID          string          `json:"vector_store_id"`
	QuestionQuantity       int             `json:"question_quantity"`
	Questions              []game.Question `json:"questions"`
}

// LoadSettings reads and validates the settings file at path.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}

	s.applyDefaults()

	for i, q := range s.Questions {
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("question %d: expected 4 options, got %d", i, len(q.Options))
		}
		if !containsOption(q.Options, q.CorrectOption) {
			return nil, fmt.Errorf("question %d: correct_option %q does not match any option", i, q.CorrectOption)
		}
	}

	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.WelcomeMessage == "" {
		s.WelcomeMessage = "Game started. Good luck!"
	}
	if s.CurrencySymbol == "" {
		s.CurrencySymbol = "$"
	}
	if s.QuestionQuantity <= 0 {
		s.QuestionQuantity = 3
	}
}

func containsOption(options []string, correct string) bool {
	for _, o := range options {
		if o == correct {
			return true
		}
	}
	return false
}
