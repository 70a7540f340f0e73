package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"gopkg.in/yaml.v3"
)

// ServiceName is the AppContext key the Runner is published under.
const ServiceName = "backfill.runner"

// Defaults.
const (
	DefaultSchedule  = "*/15 * * * *"
	DefaultBatchSize = 100
	DefaultDelay     = 500 * time.Millisecond
)

// Errors returned by Provision.
var (
	ErrNoStore    = errors.New("backfill: memory.store does not support embedding backfill")
	ErrNoEmbedder = errors.New("backfill: no provider.embedder service registered")
)

// Config is the backfill.embeddings module configuration.
type Config struct {
	// Schedule is the cron expression for periodic passes.
	Schedule string `yaml:"schedule"`

	// BatchSize caps the records handled per pass.
	BatchSize int `yaml:"batch_size"`

	// Delay is the pause between embedding calls.
	Delay time.Duration `yaml:"delay"`

	// Disabled publishes the runner without scheduling it, so only
	// `mindcanvas backfill` triggers passes.
	Disabled bool `yaml:"disabled"`
}

func (c *Config) defaults() {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Delay == 0 {
		c.Delay = DefaultDelay
	}
}

func (c *Config) validate() error {
	var errs []error
	if err := ParseSchedule(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("backfill: schedule %q: %w", c.Schedule, err))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("backfill: batch_size must be >= 0, got %d", c.BatchSize))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("backfill: delay must be >= 0, got %s", c.Delay))
	}
	return errors.Join(errs...)
}

func init() {
	core.RegisterModule(&Module{})
}

// Module schedules embedding backfill passes against memory.store.
type Module struct {
	config    Config
	runner    *Runner
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "backfill.embeddings",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()

	store, ok := core.ServiceAs[Store](ctx, retrieval.StoreServiceName)
	if !ok {
		return ErrNoStore
	}
	emb, ok := core.ServiceAs[provider.Embedder](ctx, provider.EmbedderService)
	if !ok {
		return ErrNoEmbedder
	}

	m.runner = NewRunner(store, emb, ctx.Logger)
	m.runner.BatchSize = m.config.BatchSize
	m.runner.Delay = m.config.Delay
	ctx.RegisterService(ServiceName, m.runner)

	m.scheduler = NewScheduler(ctx.Logger)
	if m.config.Disabled {
		return nil
	}
	return m.scheduler.RegisterJob(&runnerJob{runner: m.runner, schedule: m.config.Schedule})
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter.
func (m *Module) Start() error {
	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// Runner returns the provisioned runner.
func (m *Module) Runner() *Runner {
	return m.runner
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)
