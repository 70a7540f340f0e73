// Package postgres implements the store.postgres module: a memory store on a
// Supabase-style Postgres database with pgvector, searched through a
// match_memories SQL function.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/mindcanvas/internal/core"
	_ "github.com/lib/pq" // PostgreSQL driver
	"gopkg.in/yaml.v3"
)

// ErrMissingDSN is returned when neither dsn nor the dsn_env variable is set.
var ErrMissingDSN = errors.New("postgres: no DSN configured")

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module publishes a Postgres-backed Store as memory.store.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.postgres",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("postgres: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if err := m.config.validate(); err != nil {
		return err
	}

	dsn := m.config.resolveDSN()
	if dsn == "" {
		return fmt.Errorf("%w: set dsn or %s", ErrMissingDSN, m.config.DSNEnv)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(m.config.MaxOpenConns)
	db.SetMaxIdleConns(m.config.MaxIdleConns)
	db.SetConnMaxLifetime(m.config.ConnMaxLifetime)

	m.store = New(db, m.config)
	ctx.RegisterService("memory.store", m.store)

	m.logger.Info("postgres store provisioned",
		"table", m.config.Table,
		"function", m.config.Function,
		"max_open_conns", m.config.MaxOpenConns,
	)
	return nil
}

// Validate implements core.Validator. It verifies the database is reachable.
func (m *Module) Validate() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := m.store.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	m.logger.Info("closing postgres connection pool")
	return m.store.Close()
}
