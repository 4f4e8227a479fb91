// Package config assembles the runtime configuration for stkit.
//
// Sources, lowest to highest precedence:
//
//  1. built-in defaults
//  2. environment variables (a local .env file is loaded first)
//  3. the optional .stkit.yaml project file
//  4. command-line flags (applied by the CLI layer)
//
// Only the API key is secret material and it is never accepted from the
// project file — environment or flag only.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of a translation run.
type Config struct {
	// APIKey authenticates against the OpenAI-compatible provider.
	APIKey string `envconfig:"OPENAI_API_KEY"`
	// BaseURL is the provider endpoint base.
	BaseURL string `envconfig:"STKIT_BASE_URL" default:"https://api.openai.com/v1"`
	// Model is the chat model used for translation.
	Model string `envconfig:"STKIT_MODEL" default:"gpt-4o"`

	// InputDir is the source stringtable tree. Usually given as the
	// command argument; the project file can pin it instead.
	InputDir string `envconfig:"STKIT_INPUT"`
	// OutputDir is the build output root.
	OutputDir string `envconfig:"STKIT_OUTPUT" default:"out"`

	// TargetLanguage is the human-readable language name used in prompts.
	TargetLanguage string `envconfig:"STKIT_TARGET_LANG" default:"Farsi"`
	// LanguageSlot is the directory slot under localized/ that the game
	// loads the translation from (historically "it" is repurposed).
	LanguageSlot string `envconfig:"STKIT_LANG_SLOT" default:"it"`

	// BatchSize is how many texts go into one provider request.
	BatchSize int `envconfig:"STKIT_BATCH_SIZE" default:"15"`
	// MaxRetries caps retry attempts per batch request.
	MaxRetries int `envconfig:"STKIT_MAX_RETRIES" default:"2"`
	// RetryDelay is the base delay for backoff between retries.
	RetryDelay time.Duration `envconfig:"STKIT_RETRY_DELAY" default:"2s"`
	// MinRequestInterval is the proactive spacing between provider calls.
	MinRequestInterval time.Duration `envconfig:"STKIT_MIN_REQUEST_INTERVAL" default:"2s"`
	// RequestTimeout bounds a single provider HTTP request.
	RequestTimeout time.Duration `envconfig:"STKIT_REQUEST_TIMEOUT" default:"60s"`

	// CachePath overrides the default cache database location.
	CachePath string `envconfig:"STKIT_CACHE_PATH"`
	// GlossaryPath points at a CSV glossary (optional).
	GlossaryPath string `envconfig:"STKIT_GLOSSARY"`
	// LogLevel sets zerolog verbosity: debug, info, warn, error.
	LogLevel string `envconfig:"STKIT_LOG_LEVEL" default:"info"`
}

// Load builds a Config from the environment. A .env file in the working
// directory is merged in first, matching local development habits.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the invariants every command relies on. Commands that
// talk to the provider additionally call ValidateProvider.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 || c.MinRequestInterval < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return fmt.Errorf("target language is required")
	}
	if strings.TrimSpace(c.LanguageSlot) == "" {
		return fmt.Errorf("language slot is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// ValidateProvider checks the settings needed for live translation.
func (c *Config) ValidateProvider() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}
