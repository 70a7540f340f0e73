// Package backfill fills in embeddings for memories saved without one,
// either on a cron schedule or on demand.
package backfill

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs. Names are unique per scheduler.
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "*/15 * * * *").
	Schedule() string

	// Run executes one tick. Implementations stop early when ctx is done.
	Run(ctx context.Context) error
}
