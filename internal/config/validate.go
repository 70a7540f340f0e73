package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/mindcanvas/internal/core"
	"gopkg.in/yaml.v3"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry and that each module
// section is a mapping (or empty).
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id, node := range cfg.Modules {
		if _, err := core.LookupModule(id); err != nil {
			errs = append(errs, fmt.Errorf("config: %w", err))
			continue
		}
		if node.Kind != 0 && node.Kind != yaml.MappingNode && node.Tag != "!!null" {
			errs = append(errs, fmt.Errorf("config: module %q: expected a mapping", id))
		}
	}

	errs = append(errs, validateLogging(cfg.Logging)...)
	errs = append(errs, validateSingletons(cfg)...)

	return errors.Join(errs...)
}

func validateLogging(l LoggingConfig) []error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: logging.level: unknown level %q", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: logging.format: unknown format %q", l.Format))
	}
	return errs
}

// validateSingletons rejects configurations that enable more than one
// store module, since only one can publish memory.store.
func validateSingletons(cfg *Config) []error {
	var stores int
	for id := range cfg.Modules {
		if core.ModuleID(id).Namespace() == "store" {
			stores++
		}
	}
	if stores > 1 {
		return []error{fmt.Errorf("config: only one store module may be configured, got %d", stores)}
	}
	return nil
}
