// Package bridge serves the pipeline over a line-oriented JSON protocol on
// stdio. Each input line is one command; the reply is zero or more progress
// events followed by exactly one terminal object. Nothing else may be
// written to the output stream.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxLine bounds a single command line.
const maxLine = 1 << 20

// Stages is the part of the pipeline the bridge drives.
type Stages interface {
	PrepareTranscription(req model.TranscriptionRequest) (model.TranscriptionRequest, error)
	PrepareAnalysis(req model.AnalysisRequest) (model.AnalysisRequest, error)
	PrepareRecap(req model.RecapRequest) (model.RecapRequest, error)
	Transcribe(ctx context.Context, req model.TranscriptionRequest, progress model.ProgressFunc) (*model.JobResult, error)
	Analyze(ctx context.Context, req model.AnalysisRequest, progress model.ProgressFunc) (*model.JobResult, error)
	Recap(ctx context.Context, req model.RecapRequest, progress model.ProgressFunc) (*model.JobResult, error)
	WhisperHealth(ctx context.Context, host string) (adapter.HealthReport, error)
	OllamaHealth(ctx context.Context, url, modelName string) (adapter.HealthReport, error)
}

type command struct {
	Command      string `json:"command"`
	File         string `json:"file"`
	Model        string `json:"model"`
	Mode         string `json:"mode"`
	Language     string `json:"language"`
	WhisperHost  string `json:"whisper_host"`
	OllamaHost   string `json:"ollama_host"`
	OllamaURL    string `json:"ollama_url"`
	AnalysisType string `json:"analysis_type"`
	Style        string `json:"style"`
	OutputDir    string `json:"output_dir"`
}

// ollama accepts either spelling of the generation backend address.
func (c command) ollama() string {
	if c.OllamaHost != "" {
		return c.OllamaHost
	}
	return c.OllamaURL
}

type progressEvent struct {
	Type     string `json:"type"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type terminal struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

type stageData struct {
	*model.JobResult
	Message string `json:"message"`
}

type Handler struct {
	stages Stages
	log    *zerolog.Logger

	mu  sync.Mutex
	out *json.Encoder
}

func NewHandler(stages Stages, out io.Writer, log *zerolog.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return &Handler{stages: stages, out: enc, log: log}
}

// Serve handles commands from in one at a time until in is exhausted or ctx
// is cancelled. A command is fully answered before the next line is read.
func (h *Handler) Serve(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64<<10), maxLine)
	h.log.Info().Msg("bridge waiting for commands")
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		h.Handle(ctx, []byte(line))
	}
	return sc.Err()
}

// Handle answers a single command line.
func (h *Handler) Handle(ctx context.Context, line []byte) {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	log := logging.With(ctx, h.log)

	var cmd command
	if err := json.Unmarshal(line, &cmd); err != nil {
		log.Warn().Err(err).Msg("invalid command line")
		h.fail(fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	log.Debug().Str("command", cmd.Command).Str("file", cmd.File).Msg("command received")

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("command", cmd.Command).Msg("panic recovered")
			h.fail(fmt.Sprintf("Unexpected error: %v", rec))
		}
	}()

	switch cmd.Command {
	case "transcribe":
		h.transcribe(ctx, cmd)
	case "analyze":
		h.analyze(ctx, cmd)
	case "recap":
		h.recap(ctx, cmd)
	case "check_whisper_health":
		h.health(h.stages.WhisperHealth(ctx, cmd.WhisperHost))
	case "check_ollama_health":
		h.health(h.stages.OllamaHealth(ctx, cmd.ollama(), cmd.Model))
	default:
		h.fail(fmt.Sprintf("Unknown command: %q", cmd.Command))
	}
}

func (h *Handler) transcribe(ctx context.Context, cmd command) {
	req, err := h.stages.PrepareTranscription(model.TranscriptionRequest{
		SourcePath: cmd.File,
		Model:      cmd.Model,
		Mode:       model.TranscriptionMode(cmd.Mode),
		BackendURL: cmd.WhisperHost,
		Language:   cmd.Language,
		OutputDir:  cmd.OutputDir,
	})
	if err != nil {
		h.fail(err.Error())
		return
	}
	res, err := h.stages.Transcribe(ctx, req, h.progress)
	h.finish(res, err, "Transcription completed successfully")
}

func (h *Handler) analyze(ctx context.Context, cmd command) {
	req, err := h.stages.PrepareAnalysis(model.AnalysisRequest{
		TranscriptPath: cmd.File,
		Model:          cmd.Model,
		BackendURL:     cmd.ollama(),
		Task:           model.AnalysisTask(cmd.AnalysisType),
		OutputDir:      cmd.OutputDir,
	})
	if err != nil {
		h.fail(err.Error())
		return
	}
	res, err := h.stages.Analyze(ctx, req, h.progress)
	h.finish(res, err, "Analysis completed successfully")
}

func (h *Handler) recap(ctx context.Context, cmd command) {
	req, err := h.stages.PrepareRecap(model.RecapRequest{
		AnalysisPath: cmd.File,
		Model:        cmd.Model,
		BackendURL:   cmd.ollama(),
		Style:        model.RecapStyle(cmd.Style),
		OutputDir:    cmd.OutputDir,
	})
	if err != nil {
		h.fail(err.Error())
		return
	}
	res, err := h.stages.Recap(ctx, req, h.progress)
	h.finish(res, err, "Recap generated successfully")
}

func (h *Handler) health(rep adapter.HealthReport, err error) {
	if err != nil {
		h.fail(err.Error())
		return
	}
	h.write(terminal{Status: "success", Data: rep})
}

func (h *Handler) finish(res *model.JobResult, err error, msg string) {
	if err != nil {
		h.fail(err.Error())
		return
	}
	h.write(terminal{Status: "success", Data: stageData{JobResult: res, Message: msg}})
}

func (h *Handler) progress(stage string, progress int, message string) {
	h.write(progressEvent{Type: "progress", Stage: stage, Progress: progress, Message: message})
}

func (h *Handler) fail(msg string) {
	h.write(terminal{Status: "error", Error: msg})
}

func (h *Handler) write(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.out.Encode(v); err != nil {
		h.log.Error().Err(err).Msg("write to output failed")
	}
}
