package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/mindcanvas/internal/config"
	"github.com/spf13/cobra"
)

// setupAnswers holds the choices collected by `mindcanvas init`.
type setupAnswers struct {
	Store    string // sqlite or postgres
	Provider string // gemini, anthropic or openai_compatible
	BaseURL  string
	Model    string
	Bind     string
	Gateway  bool
	Backfill bool
	Tracing  bool
}

func defaultAnswers() setupAnswers {
	return setupAnswers{
		Store:    "sqlite",
		Provider: "gemini",
		BaseURL:  "http://localhost:11434/v1",
		Bind:     "127.0.0.1:8080",
		Gateway:  true,
		Backfill: true,
	}
}

func initCmd() *cobra.Command {
	var (
		output string
		force  bool
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter mindcanvas.yaml interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", output)
				}
			}

			answers := defaultAnswers()
			if !yes {
				if err := setupForm(&answers).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
			}

			data, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			fmt.Fprintln(cmd.OutOrStdout(), "Put API keys in .env, then run: mindcanvas start")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.FileName, "Where to write the configuration")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept the defaults without prompting")
	return cmd
}

func setupForm(a *setupAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where are memories stored?").
				Options(
					huh.NewOption("SQLite file in the data directory", "sqlite"),
					huh.NewOption("Postgres with pgvector (Supabase)", "postgres"),
				).
				Value(&a.Store),
			huh.NewSelect[string]().
				Title("Which model provider?").
				Options(
					huh.NewOption("Google Gemini", "gemini"),
					huh.NewOption("Anthropic Claude (Gemini embeddings)", "anthropic"),
					huh.NewOption("OpenAI-compatible API (OpenAI, Ollama, vLLM)", "openai_compatible"),
				).
				Value(&a.Provider),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Value(&a.BaseURL),
			huh.NewInput().
				Title("Chat model").
				Placeholder("llama3.1").
				Value(&a.Model),
		).WithHideFunc(func() bool { return a.Provider != "openai_compatible" }),
		huh.NewGroup(
			huh.NewConfirm().Title("Serve the HTTP search API?").Value(&a.Gateway),
			huh.NewInput().Title("Listen address").Value(&a.Bind),
			huh.NewConfirm().Title("Embed new memories in the background?").Value(&a.Backfill),
			huh.NewConfirm().Title("Export traces over OTLP?").Value(&a.Tracing),
		),
	)
}

// renderConfig turns answers into a configuration file that config.Validate
// accepts.
func renderConfig(a setupAnswers) ([]byte, error) {
	var b strings.Builder
	b.WriteString("version: \"1\"\n\nlogging:\n  level: info\n\nmodules:\n")

	switch a.Store {
	case "sqlite":
		b.WriteString("  store.sqlite: {}\n")
	case "postgres":
		b.WriteString("  store.postgres:\n    dsn_env: DATABASE_URL\n")
	default:
		return nil, fmt.Errorf("unknown store %q", a.Store)
	}

	switch a.Provider {
	case "gemini":
		b.WriteString("  provider.gemini:\n    api_key_env: GEMINI_API_KEY\n")
	case "anthropic":
		b.WriteString("  provider.anthropic:\n    api_key_env: ANTHROPIC_API_KEY\n")
		b.WriteString("  provider.gemini:\n    api_key_env: GEMINI_API_KEY\n    serve: [embedder]\n")
	case "openai_compatible":
		if a.Model == "" {
			return nil, errors.New("a chat model is required for openai_compatible")
		}
		fmt.Fprintf(&b, "  provider.openai_compatible:\n    base_url: %q\n    api_key_env: OPENAI_API_KEY\n    model: %q\n    embedding_model: text-embedding-3-small\n",
			a.BaseURL, a.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q", a.Provider)
	}

	b.WriteString("  retrieval.pipeline:\n    threshold: 0.4\n    limit: 15\n")
	if a.Gateway {
		fmt.Fprintf(&b, "  gateway.http:\n    bind: %q\n", a.Bind)
	}
	if a.Backfill {
		b.WriteString("  backfill.embeddings:\n    schedule: \"*/15 * * * *\"\n")
	}
	if a.Tracing {
		b.WriteString("  telemetry.otlp:\n    endpoint: http://localhost:4318\n")
	}
	return []byte(b.String()), nil
}
