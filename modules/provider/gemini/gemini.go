// Package gemini provides the Google Gemini provider module. It serves
// answer generation and embeddings through google.golang.org/genai.
package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Provider implements provider.Provider and provider.Embedder on Gemini.
// The SDK client is created on first use.
type Provider struct {
	config Config
	apiKey string
	logger *slog.Logger

	once       sync.Once
	backend    backend
	backendErr error
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.gemini",
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

// Provision implements core.Provisioner. A missing API key is not fatal:
// the provider is still registered and every call reports
// provider.ErrMissingCredentials.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger

	p.apiKey = p.config.apiKey()
	if p.apiKey == "" {
		p.logger.Warn("gemini api key not configured", "env", p.config.APIKeyEnv)
	} else if r, ok := core.ServiceAs[*security.Redactor](ctx, security.RedactorService); ok {
		r.AddLiteral(p.apiKey)
	}

	roles, err := provider.ParseRoles(p.config.Serve)
	if err != nil {
		return err
	}
	for _, r := range roles {
		ctx.RegisterService(r.ServiceName(), p)
	}

	p.logger.Info("gemini provider ready",
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
	b, err := p.client()
	if err != nil {
		return provider.CompletionResponse{}, err
	}

	contents, system := buildContents(req)
	resp, err := b.generate(ctx, p.config.Model, contents, buildConfig(req, p.config.MaxTokens, system))
	if err != nil {
		return provider.CompletionResponse{}, classify(ctx, err)
	}

	out := parseResponse(resp)
	if out.Content == "" {
		return out, provider.ErrEmptyResponse
	}
	return out, nil
}

// Embed implements provider.Embedder.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	b, err := p.client()
	if err != nil {
		return nil, err
	}
	vec, err := b.embed(ctx, p.config.EmbeddingModel, text)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(vec) == 0 {
		return nil, provider.ErrEmptyResponse
	}
	return vec, nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// EmbeddingModel implements provider.Embedder.
func (p *Provider) EmbeddingModel() string {
	return p.config.EmbeddingModel
}

// client returns the lazily created backend.
func (p *Provider) client() (backend, error) {
	if p.apiKey == "" && p.backend == nil {
		return nil, provider.ErrMissingCredentials
	}
	p.once.Do(func() {
		if p.backend != nil {
			return
		}
		p.backend, p.backendErr = newGenaiBackend(context.Background(), p.apiKey, &http.Client{Timeout: p.config.Timeout})
	})
	return p.backend, p.backendErr
}

var (
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
	_ provider.Provider = (*Provider)(nil)
	_ provider.Embedder = (*Provider)(nil)
)
