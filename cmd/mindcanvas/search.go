package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/flemzord/mindcanvas/pkg/app"
	"github.com/spf13/cobra"
)

var errNoPipeline = errors.New("retrieval.pipeline is not configured")

func searchCmd(g *globalFlags) *cobra.Command {
	var (
		pins        []string
		historyPath string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Run one retrieval and print the answer",
		Long: "Embeds the query, recalls matching memories and asks the generator which\n" +
			"of them answer it. With --pin the pinned memories are used instead and no\n" +
			"search happens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := readHistory(historyPath)
			if err != nil {
				return err
			}

			rt, err := app.Build(g.params("gateway", "backfill"))
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, ok := core.ServiceAs[*retrieval.Service](rt.Context, retrieval.ServiceName)
			if !ok {
				return errNoPipeline
			}

			res := svc.PerformSearch(cmd.Context(), strings.Join(args, " "), history, pins)
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}
	cmd.Flags().StringSliceVar(&pins, "pin", nil, "Pinned memory ID (repeatable); makes this a follow-up")
	cmd.Flags().StringVar(&historyPath, "history", "", "JSON file with prior turns: [{\"role\":\"user\",\"content\":\"...\"}]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	return cmd
}

func readHistory(path string) ([]memory.Turn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var turns []memory.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	if err := validateTurns(turns); err != nil {
		return nil, fmt.Errorf("history %s: %w", path, err)
	}
	return turns, nil
}

// validateTurns accepts only user and assistant turns.
func validateTurns(turns []memory.Turn) error {
	for i, t := range turns {
		if t.Role != memory.RoleUser && t.Role != memory.RoleAssistant {
			return fmt.Errorf("turn %d: unknown role %q", i, t.Role)
		}
	}
	return nil
}

func printResult(w io.Writer, res retrieval.Result, asJSON bool) error {
	res = res.WithoutEmbeddings()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Answer != nil {
		fmt.Fprintln(w, *res.Answer)
	} else {
		fmt.Fprintln(w, "(no answer)")
	}

	if len(res.Memories) > 0 {
		fmt.Fprintln(w, "\nMemories:")
		for _, rec := range res.Memories {
			title := rec.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(w, "  [%s] %s (%s)\n", rec.ID, title, rec.Kind())
		}
	}
	if len(res.MemoryIDs) > 0 {
		fmt.Fprintf(w, "\nFollow up with: --pin %s\n", strings.Join(res.MemoryIDs, ","))
	}
	return nil
}
