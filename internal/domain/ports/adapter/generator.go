package adapter

import "context"

// GenerateOptions is the fixed sampling configuration sent with a prompt.
type GenerateOptions struct {
	Temperature float64
	TopP        float64
	NumCtx      int
	NumPredict  int
}

// Generator is the port for a text-generation backend.
type Generator interface {
	// Generate returns the model's non-empty response text.
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)
}

// GeneratorProvider hands out generators per backend address.
type GeneratorProvider interface {
	Generator(baseURL string) Generator
	Health(ctx context.Context, baseURL, model string) (HealthReport, error)
}
