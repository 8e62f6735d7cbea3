package sched

import (
	"context"
	"time"

	"meeting-recap/internal/domain/ports/repository"
	"meeting-recap/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// RetentionWorker periodically drops finished jobs from the job table once
// they are older than the retention window. Queued and processing jobs are
// never touched.
type RetentionWorker struct {
	interval  time.Duration
	retention time.Duration
	jobs      repository.JobRepository
	now       func() time.Time
	log       *zerolog.Logger
}

func NewRetentionWorker(interval, retention time.Duration, jobs repository.JobRepository, logger *zerolog.Logger) *RetentionWorker {
	compLog := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{
		interval:  interval,
		retention: retention,
		jobs:      jobs,
		now:       time.Now,
		log:       &compLog,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("retention", w.retention).Msg("Starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) int {
	n, err := w.jobs.PruneFinished(ctx, w.now().Add(-w.retention))
	if err != nil {
		w.log.Error().Err(err).Msg("retention sweep error")
		return 0
	}
	if n > 0 {
		metrics.AddJobsPruned(n)
		w.log.Info().Int("count", n).Msg("finished jobs pruned")
	}
	return n
}
