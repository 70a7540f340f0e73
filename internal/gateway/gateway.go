// Package gateway provides the HTTP surface of mindcanvas: the search API,
// health and Prometheus metrics. It binds to loopback by default and follows
// the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/flemzord/mindcanvas/internal/security"
	"gopkg.in/yaml.v3"
)

// ErrNoSearcher is returned when the gateway is provisioned without the
// retrieval.pipeline module.
var ErrNoSearcher = errors.New("gateway: no retrieval.service registered (configure retrieval.pipeline)")

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing imports it.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	limiter   *security.RateLimiter
	startedAt time.Time

	search  Searcher
	counter counter
	checks  map[string]healthChecker
	models  struct {
		generator provider.Provider
		embedder  provider.Embedder
	}
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It resolves the search pipeline
// and the optional health checkers from the service registry.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.logger = ctx.Logger
	g.metrics = NewMetrics()
	g.limiter = security.NewRateLimiter(g.config.RateLimit)

	search, ok := core.ServiceAs[Searcher](ctx, retrieval.ServiceName)
	if !ok {
		return ErrNoSearcher
	}
	g.search = search

	g.checks = make(map[string]healthChecker)
	if store, ok := ctx.Service(retrieval.StoreServiceName); ok {
		if hc, ok := store.(healthChecker); ok {
			g.checks["store"] = hc
		}
		if c, ok := store.(counter); ok {
			g.counter = c
		}
	}
	if gen, ok := core.ServiceAs[provider.Provider](ctx, provider.GeneratorService); ok {
		g.models.generator = gen
		if hc, ok := gen.(healthChecker); ok {
			g.checks["generator"] = hc
		}
	}
	if emb, ok := core.ServiceAs[provider.Embedder](ctx, provider.EmbedderService); ok {
		g.models.embedder = emb
		if hc, ok := emb.(healthChecker); ok {
			g.checks["embedder"] = hc
		}
	}

	ctx.RegisterService("gateway.metrics", g.metrics)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	if g.config.Auth.BasicUser != "" && g.config.Auth.BasicPass == "" {
		return errors.New("gateway: auth.basic_pass is required with auth.basic_user")
	}
	return nil
}

// Start implements core.Starter.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	if !isLoopback(g.config.Bind) && !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway listening on a non-loopback address without auth", "addr", g.config.Bind)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

func isLoopback(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
	_ Searcher          = (*retrieval.Service)(nil)
)
