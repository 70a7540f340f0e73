package postgres

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	defaultDSNEnv       = "DATABASE_URL"
	defaultFunction     = "match_memories"
	defaultTable        = "memories"
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
	defaultConnLifetime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// Config holds the Postgres store module configuration.
type Config struct {
	// DSN is the connection string. When empty it is read from DSNEnv.
	DSN string `yaml:"dsn"`

	// DSNEnv names the environment variable holding the DSN.
	// Defaults to DATABASE_URL.
	DSNEnv string `yaml:"dsn_env"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// Function is the similarity-search SQL function. It must accept
	// (vector, double precision, integer). Defaults to match_memories.
	Function string `yaml:"function"`

	// Table holds the records. Defaults to memories.
	Table string `yaml:"table"`
}

func (c *Config) defaults() {
	if c.DSNEnv == "" {
		c.DSNEnv = defaultDSNEnv
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaultConnLifetime
	}
	if c.Function == "" {
		c.Function = defaultFunction
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
}

// resolveDSN returns the configured DSN or the value of DSNEnv.
func (c *Config) resolveDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return os.Getenv(c.DSNEnv)
}

func (c *Config) validate() error {
	var errs []error
	if c.MaxOpenConns < 0 {
		errs = append(errs, fmt.Errorf("postgres: max_open_conns must be non-negative, got %d", c.MaxOpenConns))
	}
	if c.MaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("postgres: max_idle_conns must be non-negative, got %d", c.MaxIdleConns))
	}
	if c.ConnMaxLifetime < 0 {
		errs = append(errs, errors.New("postgres: conn_max_lifetime must be non-negative"))
	}
	return errors.Join(errs...)
}
