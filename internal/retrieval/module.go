package retrieval

import (
	"errors"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
	"gopkg.in/yaml.v3"
)

// Service names used on the AppContext registry.
const (
	ServiceName          = "retrieval.service"
	StoreServiceName     = "memory.store"
	GeneratorServiceName = provider.GeneratorService
	EmbedderServiceName  = provider.EmbedderService
)

// ErrNoStore is returned when the pipeline is provisioned before any store
// module has published memory.store.
var ErrNoStore = errors.New("retrieval: no memory.store service registered (configure store.sqlite or store.postgres)")

func init() {
	core.RegisterModule(&Module{})
}

// Module publishes a Service built from the store and provider services
// registered by earlier modules.
type Module struct {
	config  Config
	service *Service
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "retrieval.pipeline",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()

	store, ok := core.ServiceAs[memory.VectorStore](ctx, StoreServiceName)
	if !ok {
		return ErrNoStore
	}

	gen, hasGen := core.ServiceAs[provider.Provider](ctx, GeneratorServiceName)
	if !hasGen {
		ctx.Logger.Warn("no generator registered, answers will report a missing API key")
	}
	emb, hasEmb := core.ServiceAs[provider.Embedder](ctx, EmbedderServiceName)
	if !hasEmb {
		ctx.Logger.Warn("no embedder registered, fresh searches will return nothing")
	}

	m.service = NewService(m.config, store, emb, gen, ctx.Logger)
	ctx.RegisterService(ServiceName, m.service)

	ctx.Logger.Info("retrieval pipeline ready",
		"threshold", m.config.Threshold,
		"limit", m.config.Limit,
		"generator", hasGen,
		"embedder", hasEmb,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Service returns the provisioned pipeline.
func (m *Module) Service() *Service {
	return m.service
}

var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
)
