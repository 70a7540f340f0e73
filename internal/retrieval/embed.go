package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
)

// EmbeddingClient wraps a provider.Embedder and never fails: every error is
// logged and reported as an empty vector.
type EmbeddingClient struct {
	embedder provider.Embedder
	logger   *slog.Logger
}

// NewEmbeddingClient returns a client for e. A nil e yields empty vectors.
func NewEmbeddingClient(e provider.Embedder, logger *slog.Logger) *EmbeddingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingClient{embedder: e, logger: logger}
}

// Embed returns the embedding of text with newlines replaced by spaces, or
// nil if no usable vector could be obtained. It makes one attempt.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) []float32 {
	if c.embedder == nil {
		c.logger.Warn("embedding skipped: no embedder configured")
		return nil
	}

	vec, err := c.embedder.Embed(ctx, memory.EmbeddingInput(text))
	switch {
	case errors.Is(err, provider.ErrMissingCredentials):
		c.logger.Warn("embedding skipped: provider has no API key", "model", c.embedder.EmbeddingModel())
		return nil
	case err != nil:
		c.logger.Error("embedding failed",
			"model", c.embedder.EmbeddingModel(),
			"class", provider.Class(err),
			"error", err,
		)
		return nil
	case len(vec) == 0:
		c.logger.Warn("embedding returned no values", "model", c.embedder.EmbeddingModel())
		return nil
	}
	return vec
}
