package adapter

import (
	"context"

	"meeting-recap/internal/domain/model"
)

// TranscribeInput describes one transcription call.
type TranscribeInput struct {
	FilePath   string
	Model      string
	Language   string
	OutputPath string
}

// Transcriber turns an audio/video file into a transcript file. On success
// the transcript is written verbatim (UTF-8) to in.OutputPath and that path
// is returned; callers never receive the text directly.
type Transcriber interface {
	Transcribe(ctx context.Context, in TranscribeInput) (string, error)
}

// ModelLoader is implemented by transcribers that must load weights before
// the first call. Loading happens at most once per model per process.
type ModelLoader interface {
	LoadModel(ctx context.Context, model string) error
}

// HealthReport is the outcome of a backend health probe.
type HealthReport struct {
	Status         string   `json:"status"`
	Host           string   `json:"host"`
	Models         []string `json:"models"`
	ModelAvailable *bool    `json:"model_available,omitempty"`
}

// TranscriberProvider selects a transcription variant at configuration time.
type TranscriberProvider interface {
	Transcriber(mode model.TranscriptionMode, host string) (Transcriber, error)
	Health(ctx context.Context, host string) (HealthReport, error)
}
