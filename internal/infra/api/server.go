// File: internal/infra/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options configures the HTTP surface.
type Options struct {
	APIKey         string
	APIKeyHeader   string
	RequestTimeout time.Duration
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// Server exposes the job orchestrator over REST. Every stage is its own job;
// callers chain stages by passing the previous result path.
type Server struct {
	jobs usecase.JobUseCase
	opts Options
	log  *zerolog.Logger
}

func NewServer(jobs usecase.JobUseCase, opts Options, log *zerolog.Logger) *Server {
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Server{jobs: jobs, opts: opts, log: log}
}

// Handler builds the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(APIKey(s.opts.APIKeyHeader, s.opts.APIKey, s.log))
		r.Post("/api/transcribe", s.handleTranscribe)
		r.Post("/api/analyze", s.handleAnalyze)
		r.Post("/api/recap", s.handleRecap)
		r.Get("/api/status/{jobID}", s.handleStatus)
		r.Get("/api/jobs", s.handleJobs)
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	})

	return Chain(r,
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.opts.RequestTimeout),
	)
}

type transcribeRequest struct {
	FilePath    string `json:"file_path"`
	Model       string `json:"model"`
	OutputDir   string `json:"output_dir"`
	Language    string `json:"language"`
	Mode        string `json:"mode"`
	WhisperHost string `json:"whisper_host"`
}

type analyzeRequest struct {
	TranscriptPath string `json:"transcript_path"`
	Model          string `json:"model"`
	OllamaURL      string `json:"ollama_url"`
	OutputDir      string `json:"output_dir"`
	AnalysisType   string `json:"analysis_type"`
}

type recapRequest struct {
	AnalysisPath string `json:"analysis_path"`
	Style        string `json:"style"`
	OllamaURL    string `json:"ollama_url"`
	OutputDir    string `json:"output_dir"`
	Model        string `json:"model"`
}

type submitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	JobID    string           `json:"job_id"`
	Status   model.JobStatus  `json:"status"`
	Progress int              `json:"progress"`
	Stage    string           `json:"stage"`
	Error    *string          `json:"error"`
	Result   *model.JobResult `json:"result"`
}

type jobSummary struct {
	JobID     string          `json:"job_id"`
	Status    model.JobStatus `json:"status"`
	Type      model.JobKind   `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var in transcribeRequest
	if !decode(w, r, &in) {
		return
	}
	job, err := s.jobs.SubmitTranscription(r.Context(), model.TranscriptionRequest{
		SourcePath: in.FilePath,
		Model:      in.Model,
		Mode:       model.TranscriptionMode(in.Mode),
		BackendURL: in.WhisperHost,
		Language:   in.Language,
		OutputDir:  in.OutputDir,
	})
	s.accepted(w, r, job, err, "Transcription job queued")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in analyzeRequest
	if !decode(w, r, &in) {
		return
	}
	job, err := s.jobs.SubmitAnalysis(r.Context(), model.AnalysisRequest{
		TranscriptPath: in.TranscriptPath,
		Model:          in.Model,
		BackendURL:     in.OllamaURL,
		Task:           model.AnalysisTask(in.AnalysisType),
		OutputDir:      in.OutputDir,
	})
	s.accepted(w, r, job, err, "Analysis job queued")
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	var in recapRequest
	if !decode(w, r, &in) {
		return
	}
	job, err := s.jobs.SubmitRecap(r.Context(), model.RecapRequest{
		AnalysisPath: in.AnalysisPath,
		Model:        in.Model,
		BackendURL:   in.OllamaURL,
		Style:        model.RecapStyle(in.Style),
		OutputDir:    in.OutputDir,
	})
	s.accepted(w, r, job, err, "Recap job queued")
}

func (s *Server) accepted(w http.ResponseWriter, r *http.Request, job *model.Job, err error, msg string) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: msg,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := statusResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Stage:    job.Stage,
		Result:   job.Result,
	}
	if job.Status == model.JobStatusFailed {
		msg := job.Error
		resp.Error = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]jobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobSummary{JobID: j.ID, Status: j.Status, Type: j.Kind, CreatedAt: j.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string][]jobSummary{"jobs": out})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
	}
	writeError(w, code, err.Error())
}

// statusFor maps submission errors onto HTTP codes.
func statusFor(err error) int {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch {
	case de.Kind == domain.KindNotFound, de.Kind == domain.KindJobNotFound:
		return http.StatusNotFound
	case domain.CategoryOf(de.Kind) == domain.CategoryInputValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"detail": msg})
}
