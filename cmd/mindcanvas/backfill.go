package main

import (
	"time"

	"github.com/flemzord/mindcanvas/internal/backfill"
	"github.com/flemzord/mindcanvas/pkg/app"
	"github.com/spf13/cobra"
)

func backfillCmd(g *globalFlags) *cobra.Command {
	var (
		all   bool
		batch int
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed memories that were saved without an embedding",
		Long: "Runs one backfill pass. Each memory is embedded from its title, content\n" +
			"and AI description. With --all every memory is re-embedded, which\n" +
			"refreshes vectors for records edited since they were first saved.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.Build(g.params("gateway", "backfill"))
			if err != nil {
				return err
			}
			defer rt.Close()

			runner, err := newRunner(rt.Context)
			if err != nil {
				return err
			}
			runner.Regenerate = all
			runner.BatchSize = batch
			runner.Delay = delay

			report, err := runner.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Re-embed every memory, not only those missing a vector")
	cmd.Flags().IntVar(&batch, "batch", 0, "Maximum memories to process (0 = no limit)")
	cmd.Flags().DurationVar(&delay, "delay", backfill.DefaultDelay, "Pause between embedding calls")
	return cmd
}
