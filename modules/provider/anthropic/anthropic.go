// Package anthropic implements the provider.anthropic module, a generator
// backed by the Anthropic Messages API.
package anthropic

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/security"
	"gopkg.in/yaml.v3"
)

// ErrEmbedderRole is returned when the module is asked to serve embeddings.
var ErrEmbedderRole = errors.New("provider.anthropic: cannot serve embedder (no embeddings API)")

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module            = (*Anthropic)(nil)
	_ core.Configurable      = (*Anthropic)(nil)
	_ core.Provisioner       = (*Anthropic)(nil)
	_ core.Validator         = (*Anthropic)(nil)
	_ provider.Provider      = (*Anthropic)(nil)
	_ provider.HealthChecker = (*Anthropic)(nil)
)

// Anthropic is the provider.anthropic module.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	hasKey bool
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.logger = ctx.Logger

	roles, err := provider.ParseRoles(a.config.Serve)
	if err != nil {
		return err
	}
	if slices.Contains(roles, provider.RoleEmbedder) {
		return ErrEmbedderRole
	}

	apiKey := a.config.apiKey()
	a.hasKey = apiKey != ""
	if a.hasKey {
		if r, ok := core.ServiceAs[*security.Redactor](ctx, security.RedactorService); ok {
			r.AddLiteral(apiKey)
		}
	} else {
		a.logger.Warn("anthropic api key not set, answers will report a missing key", "env", a.config.APIKeyEnv)
	}

	// Retries stay off: a failed answer degrades to a fixed message.
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: a.config.Timeout}),
	}
	if a.hasKey {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if a.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.config.BaseURL))
	}
	client := sdkanthropic.NewClient(opts...)
	a.client = &client

	ctx.RegisterService(provider.GeneratorService, a)
	a.logger.Info("anthropic provider ready", "model", a.config.Model)
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	if a.config.Model == "" {
		return errors.New("provider.anthropic: model must not be empty")
	}
	if a.client == nil {
		return errors.New("provider.anthropic: client not initialized (Provision not called)")
	}
	return a.config.validate()
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}
