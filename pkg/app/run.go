// Package app provides the shared entry point for the mindcanvas commands:
// environment and configuration loading, the redacting root logger and the
// module lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/flemzord/mindcanvas/internal/config"
	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/security"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when Params.EnvFile is empty and the file exists.
const DefaultEnvFile = ".env"

// Params configures Build and Run.
type Params struct {
	// ConfigPath is an explicit configuration file. If empty, config.FindPath
	// searches the standard locations.
	ConfigPath string

	// EnvFile is loaded into the process environment before the config is
	// expanded. A missing explicit file is an error; a missing default is not.
	EnvFile string

	// DataDir overrides both the config's data_dir and DefaultDataDir.
	DataDir string

	// LogLevel overrides logging.level from the config when non-empty.
	LogLevel string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// Exclude lists module namespaces (e.g. "gateway") that are not loaded
	// even when configured. One-shot commands use it to skip servers.
	Exclude []string
}

// Runtime is a provisioned, not yet started, application.
type Runtime struct {
	App        *core.App
	Context    *core.AppContext
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Modules    []string
}

// Build loads the environment and configuration, constructs the root logger
// and provisions every configured module in dependency order.
func Build(params Params) (*Runtime, error) {
	if err := LoadEnv(params.EnvFile); err != nil {
		return nil, err
	}

	cfgPath, err := config.FindPath(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if params.LogLevel != "" {
		cfg.Logging.Level = params.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// Provider modules add resolved API keys to the redactor during
	// Provision, so logger and redactor are created first.
	redactor := security.NewRedactor()
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := security.NewLogger(out, cfg.Logging.SlogLevel(), cfg.Logging.JSON(), redactor)

	dataDir := resolveDataDir(params.DataDir, cfg.DataDir)
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(security.RedactorService, redactor)
	appCtx.RegisterService("config.path", cfgPath)

	ids := slices.DeleteFunc(config.Resolve(cfg), func(id string) bool {
		return slices.Contains(params.Exclude, core.ModuleID(id).Namespace())
	})

	application := core.NewApp(appCtx)
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}

	return &Runtime{
		App:        application,
		Context:    appCtx,
		Config:     cfg,
		ConfigPath: cfgPath,
		Logger:     logger,
		Modules:    ids,
	}, nil
}

// Run builds the application and blocks until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, params Params) error {
	rt, err := Build(params)
	if err != nil {
		return err
	}
	rt.Logger.Info("mindcanvas starting", "config", rt.ConfigPath, "modules", len(rt.Modules))
	return rt.App.Run(ctx)
}

// Close stops every module. Safe to call on a runtime that was never started.
func (rt *Runtime) Close() {
	rt.App.Stop()
}

// LoadEnv loads path (or DefaultEnvFile when empty) into the process
// environment. Variables already set are kept.
func LoadEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading env file %s: %w", path, err)
}

func resolveDataDir(flag, configured string) string {
	switch {
	case flag != "":
		return flag
	case configured != "":
		return configured
	default:
		return DefaultDataDir()
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/mindcanvas, or
// ~/.local/share/mindcanvas when XDG_DATA_HOME is unset.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "mindcanvas")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mindcanvas")
}
