// Package openaicompat provides an OpenAI-compatible provider module.
// It works with any API that implements the OpenAI chat completions and
// embeddings endpoints (Mistral, Groq, Together, vLLM, Ollama, LiteLLM, etc.)
// via a configurable base_url.
package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Provider is an OpenAI-compatible generator and embedder.
type Provider struct {
	config Config
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai_compatible",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger
	p.client = &http.Client{Timeout: p.config.Timeout}

	p.apiKey = p.config.apiKey()
	if p.apiKey != "" {
		if r, ok := core.ServiceAs[*security.Redactor](ctx, security.RedactorService); ok {
			r.AddLiteral(p.apiKey)
		}
	} else if p.config.APIKeyEnv != "" {
		p.logger.Warn("api key environment variable is empty", "env", p.config.APIKeyEnv)
	}

	roles, err := provider.ParseRoles(p.config.Serve)
	if err != nil {
		return err
	}
	for _, r := range roles {
		ctx.RegisterService(r.ServiceName(), p)
	}

	p.logger.Info("openai-compatible provider ready",
		"base_url", p.config.BaseURL,
		"model", p.config.Model,
		"embedding_model", p.config.EmbeddingModel,
		"roles", roles,
	)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	if err := p.requireKey(); err != nil {
		return provider.CompletionResponse{}, err
	}

	resp, err := p.post(ctx, "/chat/completions", buildRequest(p.config.Model, p.config.MaxTokens, req))
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return provider.CompletionResponse{}, handleErrorResponse(resp)
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return provider.CompletionResponse{}, provider.ErrEmptyResponse
	}

	return parseResponse(oaiResp), nil
}

// Embed implements provider.Embedder.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.requireKey(); err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, "/embeddings", oaiEmbeddingRequest{Model: p.config.EmbeddingModel, Input: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	var out oaiEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, provider.ErrEmptyResponse
	}
	return out.Data[0].Embedding, nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// EmbeddingModel implements provider.Embedder.
func (p *Provider) EmbeddingModel() string {
	return p.config.EmbeddingModel
}

// HealthCheck implements provider.HealthChecker.
// It queries the /models endpoint to check provider availability.
func (p *Provider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/models", nil)
	if err != nil {
		return err
	}
	p.setAuth(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health check: %w", provider.ErrProviderDown, err)
	}
	defer resp.Body.Close()               //nolint:errcheck // best-effort close
	_, _ = io.Copy(io.Discard, resp.Body) // drain body

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: health check returned HTTP %d", provider.ErrProviderDown, resp.StatusCode)
	}

	return nil
}

// requireKey fails when an api_key_env was configured but resolved empty.
// Servers that need no key are configured with neither field.
func (p *Provider) requireKey() error {
	if p.apiKey == "" && p.config.APIKeyEnv != "" {
		return fmt.Errorf("%w: %s is not set", provider.ErrMissingCredentials, p.config.APIKeyEnv)
	}
	return nil
}

// Compile-time interface assertions.
var (
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
	_ provider.Provider      = (*Provider)(nil)
	_ provider.Embedder      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
)
