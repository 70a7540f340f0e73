package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/mindcanvas/internal/memory"
	"github.com/flemzord/mindcanvas/internal/provider"
)

// Store is what the runner needs from a memory store.
type Store interface {
	memory.VectorStore
	memory.Backfiller
}

// Report summarizes one backfill pass.
type Report struct {
	Scanned  int `json:"scanned"`
	Embedded int `json:"embedded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Runner embeds records and writes the vectors back to the store.
type Runner struct {
	store    Store
	embedder provider.Embedder
	logger   *slog.Logger

	// BatchSize caps the records handled per pass. Zero means no cap.
	BatchSize int

	// Delay is the pause between two embedding calls.
	Delay time.Duration

	// Regenerate re-embeds every record, not just those missing a vector.
	Regenerate bool
}

// NewRunner creates a Runner with the default batch size and delay.
func NewRunner(store Store, embedder provider.Embedder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     store,
		embedder:  embedder,
		logger:    logger,
		BatchSize: DefaultBatchSize,
		Delay:     DefaultDelay,
	}
}

// Run performs one pass. Per-record embedding failures are counted and
// logged; missing credentials and cancellation abort the pass.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var report Report

	records, err := r.pending(ctx)
	if err != nil {
		return report, fmt.Errorf("backfill: loading records: %w", err)
	}
	report.Scanned = len(records)

	for i, rec := range records {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				return report, err
			}
		}

		text := strings.TrimSpace(memory.EmbeddingInput(rec.EmbeddingText()))
		if text == "" {
			report.Skipped++
			continue
		}

		vec, err := r.embedder.Embed(ctx, text)
		switch {
		case err == nil && len(vec) == 0:
			err = provider.ErrEmptyResponse
		case err != nil && (errors.Is(err, provider.ErrMissingCredentials) || ctx.Err() != nil):
			return report, fmt.Errorf("backfill: embedding %s: %w", rec.ID, err)
		}
		if err != nil {
			report.Failed++
			r.logger.Warn("backfill: embedding failed", "id", rec.ID, "error", err)
			continue
		}

		if err := r.store.SetEmbedding(ctx, rec.ID, vec); err != nil {
			report.Failed++
			r.logger.Warn("backfill: storing embedding failed", "id", rec.ID, "error", err)
			continue
		}
		report.Embedded++
		r.logger.Debug("backfill: embedded", "id", rec.ID, "title", rec.Title, "dims", len(vec))
	}

	if report.Scanned > 0 {
		r.logger.Info("backfill: pass complete",
			"scanned", report.Scanned,
			"embedded", report.Embedded,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, nil
}

func (r *Runner) pending(ctx context.Context) ([]memory.Record, error) {
	if !r.Regenerate {
		return r.store.MissingEmbeddings(ctx, r.BatchSize)
	}
	records, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if r.BatchSize > 0 && len(records) > r.BatchSize {
		records = records[:r.BatchSize]
	}
	return records, nil
}

func (r *Runner) pause(ctx context.Context) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runnerJob adapts a Runner to the Job interface.
type runnerJob struct {
	runner   *Runner
	schedule string
}

var _ Job = (*runnerJob)(nil)

func (j *runnerJob) Name() string     { return "embedding_backfill" }
func (j *runnerJob) Schedule() string { return j.schedule }

func (j *runnerJob) Run(ctx context.Context) error {
	_, err := j.runner.Run(ctx)
	return err
}
