package worker

import (
	"context"
	"fmt"
	"time"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/repository"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// JobWork performs one job's operation, reporting milestones through
// progress, and returns the kind-specific result.
type JobWork func(ctx context.Context, progress model.ProgressFunc) (*model.JobResult, error)

// JobProcessor drives jobs through queued -> processing -> completed|failed
// on the repository while their work runs on the pool.
type JobProcessor struct {
	jobs repository.JobRepository
	pool *Pool
	log  *zerolog.Logger
}

func NewJobProcessor(jobs repository.JobRepository, pool *Pool, log *zerolog.Logger) *JobProcessor {
	return &JobProcessor{jobs: jobs, pool: pool, log: log}
}

// Enqueue schedules work for a job that already exists in the repository.
func (p *JobProcessor) Enqueue(job *model.Job, work JobWork) error {
	id, kind := job.ID, job.Kind
	return p.pool.Submit(func(ctx context.Context) error {
		p.processOne(logging.WithJobID(ctx, id), id, kind, work)
		return nil
	})
}

func (p *JobProcessor) processOne(ctx context.Context, id string, kind model.JobKind, work JobWork) {
	log := logging.With(ctx, p.log)

	if _, err := p.jobs.Update(ctx, id, func(j *model.Job) error { return j.Start(stageFor(kind)) }); err != nil {
		log.Error().Err(err).Msg("could not start job")
		return
	}
	log.Info().Str("kind", string(kind)).Msg("Processing job")
	finished := metrics.JobStarted(string(kind))
	start := time.Now()

	result, err := p.run(ctx, work, func(stage string, progress int, message string) {
		_, uerr := p.jobs.Update(ctx, id, func(j *model.Job) error { return j.Advance(stage, progress) })
		if uerr != nil {
			log.Warn().Err(uerr).Msg("progress update dropped")
			return
		}
		log.Debug().Str("stage", stage).Int("progress", progress).Msg(message)
	})

	// Final update uses a fresh context so a cancelled pool still records it.
	final := context.Background()
	status := model.JobStatusCompleted
	if err != nil {
		status = model.JobStatusFailed
		_, uerr := p.jobs.Update(final, id, func(j *model.Job) error {
			return j.Fail(err.Error(), string(domain.KindOf(err)))
		})
		if uerr != nil {
			log.Error().Err(uerr).Msg("could not record job failure")
		}
		log.Error().Err(err).Str("error_kind", string(domain.KindOf(err))).Msg("job failed")
	} else {
		if result == nil {
			result = &model.JobResult{}
		}
		if _, uerr := p.jobs.Update(final, id, func(j *model.Job) error { return j.Complete(*result) }); uerr != nil {
			log.Error().Err(uerr).Msg("could not record job result")
		}
	}

	finished(string(status))
	log.Info().Str("status", string(status)).Dur("duration_ms", time.Since(start)).Msg("job finished")
}

// run invokes work, turning a panic into an internal error so the job still
// reaches a terminal state.
func (p *JobProcessor) run(ctx context.Context, work JobWork, progress model.ProgressFunc) (res *model.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.Errorf(domain.KindInternal, "internal error: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "job cancelled")
	}
	return work(ctx, progress)
}

func stageFor(kind model.JobKind) string {
	switch kind {
	case model.JobKindTranscribe:
		return model.StageTranscription
	case model.JobKindAnalyze:
		return model.StageAnalysis
	case model.JobKindRecap:
		return model.StageRecap
	default:
		return fmt.Sprint(kind)
	}
}
