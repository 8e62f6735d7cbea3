package ollama

import (
	"context"

	"meeting-recap/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.Generator = (*limitedGenerator)(nil)

type limitedGenerator struct {
	inner adapter.Generator
	sem   chan struct{}
}

// NewLimitedGenerator caps concurrent Generate calls on inner. A cap of 0
// returns inner unchanged.
func NewLimitedGenerator(inner adapter.Generator, maxConcurrent int) adapter.Generator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGenerator{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedGenerator) Generate(ctx context.Context, model, prompt string, opts adapter.GenerateOptions) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, model, prompt, opts)
}
