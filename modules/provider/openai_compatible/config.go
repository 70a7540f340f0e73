package openaicompat

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/flemzord/mindcanvas/internal/provider"
)

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	BaseURL        string            `yaml:"base_url"`
	APIKey         string            `yaml:"api_key"`
	APIKeyEnv      string            `yaml:"api_key_env"`
	Model          string            `yaml:"model"`
	EmbeddingModel string            `yaml:"embedding_model"`
	MaxTokens      int               `yaml:"max_tokens"`
	Headers        map[string]string `yaml:"headers"`
	Timeout        time.Duration     `yaml:"timeout"`

	// Serve lists the roles this module publishes: generator, embedder.
	// Empty means both.
	Serve []string `yaml:"serve"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseURL != "" {
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}
}

// apiKey returns the literal key or the value of APIKeyEnv.
func (c *Config) apiKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}

// validate returns an error if required fields are missing.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errMissingField("base_url")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("provider.openai_compatible: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("provider.openai_compatible: base_url scheme must be http or https, got %q", u.Scheme)
	}

	roles, err := provider.ParseRoles(c.Serve)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range roles {
		switch r {
		case provider.RoleGenerator:
			if c.Model == "" {
				errs = append(errs, errMissingField("model"))
			}
		case provider.RoleEmbedder:
			if c.EmbeddingModel == "" {
				errs = append(errs, errMissingField("embedding_model"))
			}
		}
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("provider.openai_compatible: max_tokens must not be negative"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("provider.openai_compatible: timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// errMissingField returns a validation error for a missing required field.
func errMissingField(field string) error {
	return fmt.Errorf("provider.openai_compatible: %s is required", field)
}
