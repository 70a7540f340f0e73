// Package retrieval implements the question-answering pipeline over saved
// memories: embed the query, recall candidates by vector similarity, build a
// text context from them and let a language model both answer and pick the
// candidates worth showing.
//
// Every stage degrades instead of failing: Service.PerformSearch always
// returns a Result, never an error.
package retrieval

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"
)

// Defaults for recall and display.
const (
	DefaultThreshold       = 0.4
	DefaultLimit           = 15
	DefaultDisplayFallback = 5

	// RelevanceBand is the similarity, in percent, above which the model is
	// told to prioritize a candidate.
	RelevanceBand = 60
)

// User-facing messages.
const (
	MessageNoResults      = "I couldn't find any memories related to that. Try describing what you're looking for in different words."
	MessageMissingKey     = "I cannot answer because the API key is missing."
	MessageGenerateFailed = "Sorry, I couldn't generate an answer at this time."
	MessageSearchFailed   = "Sorry, something went wrong while searching your memories. Please try again."
)

// ErrEmptyQueryVector is returned by Searcher.Search when called without a
// vector. Callers short-circuit before searching.
var ErrEmptyQueryVector = errors.New("retrieval: empty query vector")

var tracer = otel.Tracer("github.com/flemzord/mindcanvas/internal/retrieval")

// Config tunes the pipeline.
type Config struct {
	// Threshold is the minimum cosine similarity for recall, within [0, 1].
	// Default 0.4. An explicit `threshold: 0` in YAML keeps every match.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	thresholdSet bool

	// Limit caps the number of recalled candidates. Default 15.
	Limit int `yaml:"limit" json:"limit"`

	// DisplayFallback is how many top candidates are shown when the model
	// selects none. Default 5.
	DisplayFallback int `yaml:"display_fallback" json:"display_fallback"`

	// Temperature is passed to the generator when set.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// MaxTokens bounds the generated answer. Zero leaves it to the provider.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// JSONResponse asks providers that support it for JSON-only output.
	// The parser tolerates free text either way.
	JSONResponse bool `yaml:"json_response,omitempty" json:"json_response,omitempty"`
}

// UnmarshalYAML records whether threshold was given so zero stays zero.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	c.thresholdSet = hasKey(node, "threshold")
	return nil
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func (c *Config) defaults() {
	if c.Threshold == 0 && !c.thresholdSet {
		c.Threshold = DefaultThreshold
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.DisplayFallback <= 0 {
		c.DisplayFallback = DefaultDisplayFallback
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("retrieval: threshold must be within [0, 1], got %v", c.Threshold))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		errs = append(errs, fmt.Errorf("retrieval: temperature must be within [0, 2], got %v", *c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("retrieval: max_tokens must not be negative"))
	}
	return errors.Join(errs...)
}
