// File: internal/usecase/pipeline.go
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/prompts"

	"github.com/rs/zerolog"
)

// Pipeline runs the three stages synchronously. Both surfaces call it: the
// HTTP surface from a background job, the stdio bridge inline.
type Pipeline struct {
	cfg          *config.Config
	validator    *FileValidator
	transcribers adapter.TranscriberProvider
	generators   adapter.GeneratorProvider
	prompts      *prompts.Catalog
	tokens       TokenCounter
	exporter     DocumentExporter
	log          *zerolog.Logger
}

type PipelineDeps struct {
	Transcribers adapter.TranscriberProvider
	Generators   adapter.GeneratorProvider
	Prompts      *prompts.Catalog
	Tokens       TokenCounter
	// Exporter is used only when recap.export_docx is set.
	Exporter DocumentExporter
}

func NewPipeline(cfg *config.Config, deps PipelineDeps, log *zerolog.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	if deps.Prompts == nil {
		deps.Prompts = prompts.Default()
	}
	return &Pipeline{
		cfg:          cfg,
		validator:    NewFileValidator(cfg.Files.MaxSizeBytes),
		transcribers: deps.Transcribers,
		generators:   deps.Generators,
		prompts:      deps.Prompts,
		tokens:       deps.Tokens,
		exporter:     deps.Exporter,
		log:          log,
	}
}

func (p *Pipeline) Validator() *FileValidator { return p.validator }

// PrepareTranscription fills defaults and validates the request. It is the
// synchronous check done before a job exists.
func (p *Pipeline) PrepareTranscription(req model.TranscriptionRequest) (model.TranscriptionRequest, error) {
	if err := p.validator.ValidateMedia(req.SourcePath); err != nil {
		return req, err
	}
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		req.Model = p.cfg.Whisper.DefaultModel
	}
	if req.Mode == "" {
		req.Mode = model.TranscriptionMode(p.cfg.Whisper.Mode)
	}
	if !req.Mode.Valid() {
		return req, domain.Errorf(domain.KindInvalidArgument, "Unknown transcription mode: %s", req.Mode)
	}
	if req.BackendURL == "" {
		req.BackendURL = p.cfg.Whisper.Host
	}
	if req.Language == "" {
		req.Language = p.cfg.Whisper.Language
	}
	return req, nil
}

func (p *Pipeline) PrepareAnalysis(req model.AnalysisRequest) (model.AnalysisRequest, error) {
	if err := RequireFile(req.TranscriptPath); err != nil {
		return req, err
	}
	if req.Model == "" {
		req.Model = p.cfg.Ollama.DefaultModel
	}
	if req.BackendURL == "" {
		req.BackendURL = p.cfg.Ollama.URL
	}
	if req.Task == "" {
		req.Task = model.AnalysisTask(p.cfg.Analysis.DefaultTask)
	}
	if !req.Task.Valid() {
		return req, domain.Errorf(domain.KindInvalidArgument, "Unknown analysis type: %s", req.Task)
	}
	return req, nil
}

func (p *Pipeline) PrepareRecap(req model.RecapRequest) (model.RecapRequest, error) {
	if err := RequireFile(req.AnalysisPath); err != nil {
		return req, err
	}
	if req.Model == "" {
		req.Model = p.cfg.Ollama.DefaultModel
	}
	if req.BackendURL == "" {
		req.BackendURL = p.cfg.Ollama.URL
	}
	if req.Style == "" {
		req.Style = model.RecapStyle(p.cfg.Recap.DefaultStyle)
	}
	if !req.Style.Valid() {
		return req, domain.Errorf(domain.KindInvalidArgument, "Unknown recap style: %s", req.Style)
	}
	return req, nil
}

// Transcribe runs a prepared transcription request.
func (p *Pipeline) Transcribe(ctx context.Context, req model.TranscriptionRequest, progress model.ProgressFunc) (*model.JobResult, error) {
	log := logging.With(ctx, p.log)
	start := time.Now()
	out := TranscriptPath(req.SourcePath, req.Model, req.OutputDir)
	name := filepath.Base(req.SourcePath)

	if req.Mode == model.TranscriptionRemote {
		progress.Report(model.StageTranscription, 0, "Connecting to remote Whisper server...")
	} else {
		progress.Report(model.StageTranscription, 0, "Initializing Whisper processor...")
	}
	tr, err := p.transcribers.Transcriber(req.Mode, req.BackendURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, domain.Wrap(domain.KindPermissionDenied, err, "Cannot create output directory")
	}

	if loader, ok := tr.(adapter.ModelLoader); ok {
		progress.Report(model.StageTranscription, 15, "Loading Whisper model (this may take a minute)...")
		if err := loader.LoadModel(ctx, req.Model); err != nil {
			return nil, err
		}
		progress.Report(model.StageTranscription, 30, fmt.Sprintf("Transcribing %s...", name))
	} else {
		progress.Report(model.StageTranscription, 15, fmt.Sprintf("Sending to remote server at %s...", req.BackendURL))
	}

	log.Info().Str("file", req.SourcePath).Str("model", req.Model).Str("mode", string(req.Mode)).Msg("transcribing")
	path, err := tr.Transcribe(ctx, adapter.TranscribeInput{
		FilePath:   req.SourcePath,
		Model:      req.Model,
		Language:   req.Language,
		OutputPath: out,
	})
	if err != nil {
		return nil, err
	}
	progress.Report(model.StageTranscription, 100, "Transcription complete!")

	return &model.JobResult{
		TranscriptPath:  path,
		Model:           req.Model,
		Mode:            string(req.Mode),
		DurationSeconds: time.Since(start).Seconds(),
	}, nil
}

// Analyze runs a prepared analysis request.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalysisRequest, progress model.ProgressFunc) (*model.JobResult, error) {
	progress.Report(model.StageAnalysis, 0, "Initializing analyzer...")
	analyzer := NewChunkedAnalyzer(p.generators.Generator(req.BackendURL), p.prompts, p.tokens, p.cfg.Analysis.MaxChunkChars, p.log)
	out := AnalysisPath(req.TranscriptPath, req.OutputDir)

	progress.Report(model.StageAnalysis, 30, "Analyzing transcript...")
	res, err := analyzer.AnalyzeFile(ctx, req.TranscriptPath, out, req.Model, req.Task)
	if err != nil {
		return nil, err
	}
	progress.Report(model.StageAnalysis, 100, "Analysis complete!")

	return &model.JobResult{
		AnalysisPath:    out,
		Model:           req.Model,
		AnalysisType:    string(req.Task),
		ChunkCount:      res.ChunkCount,
		SkippedChunks:   res.Skipped,
		EstimatedTokens: res.EstimatedTokens,
	}, nil
}

// Recap runs a prepared recap request.
func (p *Pipeline) Recap(ctx context.Context, req model.RecapRequest, progress model.ProgressFunc) (*model.JobResult, error) {
	progress.Report(model.StageRecap, 0, "Initializing recap generator...")
	var exporter DocumentExporter
	if p.cfg.Recap.ExportDocx {
		exporter = p.exporter
	}
	composer := NewRecapComposer(p.generators.Generator(req.BackendURL), p.prompts, exporter, p.log)
	out := RecapPath(req.AnalysisPath, req.OutputDir)

	progress.Report(model.StageRecap, 30, fmt.Sprintf("Generating %s style recap...", req.Style))
	res, err := composer.ComposeFile(ctx, req.AnalysisPath, out, req.Model, req.Style)
	if err != nil {
		return nil, err
	}
	progress.Report(model.StageRecap, 100, "Recap generation complete!")

	return &model.JobResult{
		RecapPath: out,
		DocxPath:  res.DocxPath,
		Model:     req.Model,
		Style:     string(req.Style),
	}, nil
}

func (p *Pipeline) WhisperHealth(ctx context.Context, host string) (adapter.HealthReport, error) {
	if host == "" {
		host = p.cfg.Whisper.Host
	}
	return p.transcribers.Health(ctx, host)
}

func (p *Pipeline) OllamaHealth(ctx context.Context, url, modelName string) (adapter.HealthReport, error) {
	if url == "" {
		url = p.cfg.Ollama.URL
	}
	return p.generators.Health(ctx, url, modelName)
}
