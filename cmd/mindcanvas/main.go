// Package main is the entry point for the mindcanvas CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/flemzord/mindcanvas/internal/config"
	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/security"
	"github.com/flemzord/mindcanvas/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	config   string
	envFile  string
	dataDir  string
	logLevel string
}

func (g *globalFlags) params(exclude ...string) app.Params {
	return app.Params{
		ConfigPath: g.config,
		EnvFile:    g.envFile,
		DataDir:    g.dataDir,
		LogLevel:   g.logLevel,
		Exclude:    exclude,
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "mindcanvas",
		Short:         "Ask questions of your canvas memories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "Path to configuration file")
	pf.StringVar(&g.envFile, "env-file", "", "Env file loaded before the config (default .env when present)")
	pf.StringVar(&g.dataDir, "data-dir", "", "Directory for persistent data")
	pf.StringVar(&g.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		startCmd(g),
		configCmd(g),
		searchCmd(g),
		importCmd(g),
		backfillCmd(g),
		mcpCmd(g),
		initCmd(),
		serviceCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mindcanvas %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start mindcanvas with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), g.params())
		},
	}
}

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision every module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := g.params()
			if len(args) == 1 {
				params.ConfigPath = args[0]
			}
			rt, err := app.Build(params)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s (%d modules)\n", rt.ConfigPath, len(rt.Modules))
			for _, id := range rt.Modules {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show [path]",
		Short: "Print the expanded configuration with secrets redacted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.LoadEnv(g.envFile); err != nil {
				return err
			}
			explicit := g.config
			if len(args) == 1 {
				explicit = args[0]
			}
			path, err := config.FindPath(explicit)
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), path)
		},
	})
	return cmd
}

// showConfig writes the configuration at path after env expansion, with
// secret-looking values masked.
func showConfig(w io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	modules := make(map[string]any, len(cfg.Modules))
	for id, node := range cfg.Modules {
		var v map[string]any
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("decoding module %s: %w", id, err)
		}
		modules[id] = v
	}
	view := map[string]any{
		"version": cfg.Version,
		"logging": map[string]any{"level": cfg.Logging.Level, "format": cfg.Logging.Format},
		"modules": modules,
	}
	if cfg.DataDir != "" {
		view["data_dir"] = cfg.DataDir
	}
	security.NewRedactor().RedactMap(view)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}
