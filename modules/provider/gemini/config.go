package gemini

import (
	"errors"
	"os"
	"time"
)

const (
	defaultAPIKeyEnv      = "GEMINI_API_KEY"
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "embedding-001"
	defaultTimeout        = 60 * time.Second
)

// Config holds the Gemini provider configuration.
type Config struct {
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`

	// Model generates answers. Defaults to gemini-2.5-flash.
	Model string `yaml:"model"`

	// EmbeddingModel embeds queries and records. Defaults to embedding-001.
	EmbeddingModel string `yaml:"embedding_model"`

	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`

	// Serve lists the roles this module publishes. Empty means both.
	Serve []string `yaml:"serve"`
}

func (c *Config) defaults() {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = defaultEmbeddingModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) apiKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

func (c *Config) validate() error {
	var errs []error
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("provider.gemini: max_tokens must not be negative"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("provider.gemini: timeout must not be negative"))
	}
	return errors.Join(errs...)
}
