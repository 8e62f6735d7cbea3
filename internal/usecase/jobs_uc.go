// File: internal/usecase/jobs_uc.go
package usecase

import (
	"context"

	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/repository"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"
	"meeting-recap/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// JobUseCase is the orchestrator behind the HTTP surface. Submissions are
// validated synchronously; a job only exists once its input passed.
type JobUseCase interface {
	SubmitTranscription(ctx context.Context, req model.TranscriptionRequest) (*model.Job, error)
	SubmitAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.Job, error)
	SubmitRecap(ctx context.Context, req model.RecapRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context) ([]*model.Job, error)
}

// JobRunner executes a job's work in the background.
type JobRunner interface {
	Enqueue(job *model.Job, work worker.JobWork) error
}

type jobUC struct {
	pipeline *Pipeline
	jobs     repository.JobRepository
	runner   JobRunner
	log      *zerolog.Logger
}

func NewJobUseCase(pipeline *Pipeline, jobs repository.JobRepository, runner JobRunner, log *zerolog.Logger) *jobUC {
	if log == nil {
		log = logging.Nop()
	}
	return &jobUC{pipeline: pipeline, jobs: jobs, runner: runner, log: log}
}

func (uc *jobUC) SubmitTranscription(ctx context.Context, req model.TranscriptionRequest) (*model.Job, error) {
	req, err := uc.pipeline.PrepareTranscription(req)
	if err != nil {
		return nil, err
	}
	return uc.submit(ctx, model.JobKindTranscribe, func(ctx context.Context, progress model.ProgressFunc) (*model.JobResult, error) {
		return uc.pipeline.Transcribe(ctx, req, progress)
	})
}

func (uc *jobUC) SubmitAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.Job, error) {
	req, err := uc.pipeline.PrepareAnalysis(req)
	if err != nil {
		return nil, err
	}
	return uc.submit(ctx, model.JobKindAnalyze, func(ctx context.Context, progress model.ProgressFunc) (*model.JobResult, error) {
		return uc.pipeline.Analyze(ctx, req, progress)
	})
}

func (uc *jobUC) SubmitRecap(ctx context.Context, req model.RecapRequest) (*model.Job, error) {
	req, err := uc.pipeline.PrepareRecap(req)
	if err != nil {
		return nil, err
	}
	return uc.submit(ctx, model.JobKindRecap, func(ctx context.Context, progress model.ProgressFunc) (*model.JobResult, error) {
		return uc.pipeline.Recap(ctx, req, progress)
	})
}

func (uc *jobUC) Get(ctx context.Context, id string) (*model.Job, error) {
	return uc.jobs.Get(ctx, id)
}

func (uc *jobUC) List(ctx context.Context) ([]*model.Job, error) {
	return uc.jobs.List(ctx)
}

func (uc *jobUC) submit(ctx context.Context, kind model.JobKind, work worker.JobWork) (*model.Job, error) {
	job := model.NewJob(kind)
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	metrics.IncJobSubmitted(string(kind))
	logging.With(logging.WithJobID(ctx, job.ID), uc.log).Info().Str("kind", string(kind)).Msg("job queued")

	if err := uc.runner.Enqueue(job, work); err != nil {
		// The pool is shutting down; the job would otherwise sit in queued forever.
		_, _ = uc.jobs.Update(ctx, job.ID, func(j *model.Job) error { return j.Fail(err.Error(), "internal") })
		return nil, err
	}
	return job.Clone(), nil
}
