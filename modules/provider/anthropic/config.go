package anthropic

import (
	"errors"
	"os"
	"time"

	"github.com/flemzord/mindcanvas/internal/provider"
)

// defaultModel is pinned to a dated release for reproducibility.
const defaultModel = "claude-sonnet-4-5-20250929"

const (
	defaultAPIKeyEnv = "ANTHROPIC_API_KEY"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`

	// Serve lists the roles this module registers for. Anthropic has no
	// embeddings API, so only "generator" is accepted. Empty means generator.
	Serve []string `yaml:"serve"`
}

// defaults fills in zero-value fields.
func (c *Config) defaults() {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if len(c.Serve) == 0 {
		c.Serve = []string{string(provider.RoleGenerator)}
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
		errs = append(errs, errors.New("provider.anthropic: max_tokens must not be negative"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("provider.anthropic: timeout must not be negative"))
	}
	return errors.Join(errs...)
}
