package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flemzord/mindcanvas/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts app.Run to the service manager's Start/Stop callbacks.
type program struct {
	params app.Params
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- app.Run(ctx, p.params) }()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

func serviceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service <install|uninstall|start|stop|restart|run>",
		Short: "Manage mindcanvas as an OS service",
		Args:  cobra.ExactArgs(1),
		ValidArgs: append(
			[]string{"run"},
			service.ControlAction[:]...,
		),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := serviceConfig(g)
			if err != nil {
				return err
			}
			s, err := service.New(&program{params: g.params()}, cfg)
			if err != nil {
				return err
			}
			if args[0] == "run" {
				return s.Run()
			}
			if err := service.Control(s, args[0]); err != nil {
				return fmt.Errorf("service %s: %w", args[0], err)
			}
			return nil
		},
	}
	return cmd
}

// serviceConfig describes the installed service. Relative paths are made
// absolute because service managers start from a different directory.
func serviceConfig(g *globalFlags) (*service.Config, error) {
	args := []string{"service", "run"}
	for _, f := range []struct{ name, value string }{
		{"--config", g.config},
		{"--env-file", g.envFile},
		{"--data-dir", g.dataDir},
	} {
		if f.value == "" {
			continue
		}
		abs, err := filepath.Abs(f.value)
		if err != nil {
			return nil, err
		}
		args = append(args, f.name, abs)
	}
	if g.logLevel != "" {
		args = append(args, "--log-level", g.logLevel)
	}

	return &service.Config{
		Name:        "mindcanvas",
		DisplayName: "MindCanvas",
		Description: "Retrieval and answering over canvas memories.",
		Arguments:   args,
	}, nil
}
