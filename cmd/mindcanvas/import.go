package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/flemzord/mindcanvas/internal/backfill"
	"github.com/flemzord/mindcanvas/internal/core"
	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
	"github.com/flemzord/mindcanvas/internal/retrieval"
	"github.com/flemzord/mindcanvas/pkg/app"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errReadOnlyStore = errors.New("the configured store does not accept writes")

func importCmd(g *globalFlags) *cobra.Command {
	var embed bool
	cmd := &cobra.Command{
		Use:   "import <file.json|file.ndjson>",
		Short: "Import memories from a JSON array or newline-delimited JSON",
		Long: "Reads memory records, either as one JSON array or as one JSON object per\n" +
			"line, and stores them. Records without an\n" +
			"id get a random UUID; records without created_at get the import time.\n" +
			"Use - to read from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			rt, err := app.Build(g.params("gateway", "backfill"))
			if err != nil {
				return err
			}
			defer rt.Close()

			w, ok := core.ServiceAs[memory.Writer](rt.Context, retrieval.StoreServiceName)
			if !ok {
				return errReadOnlyStore
			}

			n, err := importRecords(cmd.Context(), w, in, time.Now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d memories\n", n)

			if !embed {
				return nil
			}
			runner, err := newRunner(rt.Context)
			if err != nil {
				return err
			}
			report, err := runner.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}
	cmd.Flags().BoolVar(&embed, "embed", false, "Embed imported records right away")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// importRecords decodes records from r and stores every one of them.
func importRecords(ctx context.Context, w memory.Writer, r io.Reader, now func() time.Time) (int, error) {
	records, err := decodeRecords(r)
	if err != nil {
		return 0, err
	}

	stamp := now().UTC()
	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = stamp
		}
		if err := w.Put(ctx, rec); err != nil {
			return i, fmt.Errorf("storing record %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

// decodeRecords reads a JSON array when the input starts with '[' and a
// stream of JSON objects otherwise.
func decodeRecords(r io.Reader) ([]memory.Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var records []memory.Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding records: %w", err)
		}
		return records, nil
	}
	if first != '{' {
		return nil, fmt.Errorf("decoding records: expected a JSON array or object, got %q", first)
	}

	var records []memory.Record
	for line := 1; dec.More(); line++ {
		var rec memory.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errors.New("empty input")
			}
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// newRunner builds a backfill runner from the provisioned store and embedder.
func newRunner(appCtx *core.AppContext) (*backfill.Runner, error) {
	store, ok := core.ServiceAs[backfill.Store](appCtx, retrieval.StoreServiceName)
	if !ok {
		return nil, backfill.ErrNoStore
	}
	emb, ok := core.ServiceAs[provider.Embedder](appCtx, provider.EmbedderService)
	if !ok {
		return nil, backfill.ErrNoEmbedder
	}
	return backfill.NewRunner(store, emb, appCtx.Logger), nil
}

func printReport(w io.Writer, r backfill.Report) {
	fmt.Fprintf(w, "Backfill: %d scanned, %d embedded, %d skipped, %d failed\n",
		r.Scanned, r.Embedded, r.Skipped, r.Failed)
}
