package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobKindTranscribe JobKind = "transcribe"
	JobKindAnalyze    JobKind = "analyze"
	JobKindRecap      JobKind = "recap"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one tracked unit of orchestrated work. Result is set only when
// Status is completed, Error only when it is failed.
type Job struct {
	ID        string     `json:"job_id"`
	Kind      JobKind    `json:"type"`
	Status    JobStatus  `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Progress  int        `json:"progress"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	ErrorKind string     `json:"error_kind,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// JobResult holds the kind-specific output of a completed job.
type JobResult struct {
	TranscriptPath  string  `json:"transcript_path,omitempty"`
	AnalysisPath    string  `json:"analysis_path,omitempty"`
	RecapPath       string  `json:"recap_path,omitempty"`
	DocxPath        string  `json:"docx_path,omitempty"`
	Model           string  `json:"model,omitempty"`
	Mode            string  `json:"mode,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	AnalysisType    string  `json:"analysis_type,omitempty"`
	ChunkCount      int     `json:"chunk_count,omitempty"`
	SkippedChunks   []int   `json:"skipped_chunks,omitempty"`
	EstimatedTokens int     `json:"estimated_tokens,omitempty"`
	Style           string  `json:"style,omitempty"`
}

// NewJob creates a queued job with a fresh id.
func NewJob(kind JobKind) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the job can no longer change.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a deep copy safe to hand to readers.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Result != nil {
		r := *j.Result
		r.SkippedChunks = append([]int(nil), j.Result.SkippedChunks...)
		cp.Result = &r
	}
	return &cp
}

// Start moves a queued job to processing at the given stage.
func (j *Job) Start(stage string) error {
	if j.Status != JobStatusQueued {
		return fmt.Errorf("job %s: cannot start from %s", j.ID, j.Status)
	}
	j.Status = JobStatusProcessing
	j.Stage = stage
	j.touch()
	return nil
}

// Advance records a progress milestone. Progress never decreases.
func (j *Job) Advance(stage string, progress int) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("job %s: cannot report progress while %s", j.ID, j.Status)
	}
	if progress < j.Progress {
		progress = j.Progress
	}
	if progress > 100 {
		progress = 100
	}
	if stage != "" {
		j.Stage = stage
	}
	j.Progress = progress
	j.touch()
	return nil
}

// Complete finishes the job with a result.
func (j *Job) Complete(result JobResult) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s: already %s", j.ID, j.Status)
	}
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.Result = &result
	j.touch()
	return nil
}

// Fail finishes the job with the failing component's message, unmodified.
func (j *Job) Fail(message, kind string) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s: already %s", j.ID, j.Status)
	}
	j.Status = JobStatusFailed
	j.Error = message
	j.ErrorKind = kind
	j.touch()
	return nil
}

func (j *Job) touch() { j.UpdatedAt = time.Now().UTC() }
