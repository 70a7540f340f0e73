// Package telemetry installs an OpenTelemetry tracer provider that exports
// spans over OTLP/HTTP. Without this module the global provider is the
// otel no-op and retrieval spans cost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/flemzord/mindcanvas/internal/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultEndpoint    = "http://localhost:4318"
	DefaultServiceName = "mindcanvas"
	DefaultTimeout     = 10 * time.Second
)

// Config is the telemetry.otlp module configuration.
type Config struct {
	// Endpoint is the OTLP/HTTP collector base URL.
	Endpoint string `yaml:"endpoint"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root traces kept, in (0, 1].
	SampleRatio float64 `yaml:"sample_ratio"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	u, err := url.Parse(c.Endpoint)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("telemetry: endpoint: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("telemetry: endpoint must be http or https, got %q", c.Endpoint))
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry: sample_ratio must be in (0, 1], got %v", c.SampleRatio))
	}
	return errors.Join(errs...)
}

func init() {
	core.RegisterModule(&Module{})
}

// Module owns the process-wide tracer provider.
type Module struct {
	config   Config
	provider *sdktrace.TracerProvider

	// newExporter is replaced in tests.
	newExporter func(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error)
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otlp",
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
	if err := m.config.validate(); err != nil {
		return err
	}

	newExporter := m.newExporter
	if newExporter == nil {
		newExporter = otlpExporter
	}
	exp, err := newExporter(context.Background(), m.config)
	if err != nil {
		return fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", m.config.ServiceName))
	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.config.SampleRatio))),
	)
	otel.SetTracerProvider(m.provider)

	ctx.Logger.Info("tracing enabled",
		"endpoint", m.config.Endpoint,
		"service", m.config.ServiceName,
		"sample_ratio", m.config.SampleRatio,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Stop flushes pending spans and shuts the provider down.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}

func otlpExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)
