// Package provider defines the vendor-agnostic interfaces mindcanvas uses to
// generate text and compute embeddings. Concrete implementations live under
// modules/provider and also implement core.Module.
package provider

import "context"

// Provider generates text from a conversation.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// Embedder turns text into a dense vector. Vectors from one Embedder share a
// dimension; vectors from different embedders are not comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbeddingModel returns the identifier of the embedding model.
	EmbeddingModel() string
}

// HealthChecker is an optional interface for providers that can report health
// cheaply. The gateway readiness endpoint calls it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
