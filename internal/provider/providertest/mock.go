// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/mindcanvas/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. Unset funcs panic on call.
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	ModelNameFunc   func() string
	HealthCheckFunc func(ctx context.Context) error

	mu            sync.Mutex
	CompleteCalls int
	HealthCalls   int
	LastRequest   provider.CompletionRequest
}

// Complete delegates to CompleteFunc, tracks call count and remembers the request.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastRequest = req
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// ModelName delegates to ModelNameFunc, defaulting to "mock-model".
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock-model"
	}
	return m.ModelNameFunc()
}

// HealthCheck delegates to HealthCheckFunc and tracks call count.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCalls++
	m.mu.Unlock()
	return m.HealthCheckFunc(ctx)
}

// Calls returns the number of Complete calls so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CompleteCalls
}

// Request returns the last request passed to Complete.
func (m *MockProvider) Request() provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastRequest
}

// MockEmbedder is a configurable test double for provider.Embedder.
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	mu     sync.Mutex
	Inputs []string
}

// Embed records text and delegates to EmbedFunc.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.Inputs = append(m.Inputs, text)
	m.mu.Unlock()
	return m.EmbedFunc(ctx, text)
}

// EmbeddingModel returns a fixed identifier.
func (m *MockEmbedder) EmbeddingModel() string {
	return "mock-embedding"
}

// Calls returns the texts passed to Embed so far.
func (m *MockEmbedder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Inputs...)
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
	_ provider.Embedder      = (*MockEmbedder)(nil)
)
