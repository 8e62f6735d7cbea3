// File: internal/usecase/recap_uc.go
package usecase

import (
	"context"
	"os"

	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/prompts"

	"github.com/rs/zerolog"
)

// RecapOptions is the generation configuration for recaps: warmer than
// analysis, same context and output limits.
var RecapOptions = adapter.GenerateOptions{
	Temperature: 0.7,
	TopP:        0.9,
	NumCtx:      32768,
	NumPredict:  2048,
}

// DocumentExporter writes a rendered copy of a recap next to the text file.
type DocumentExporter interface {
	Export(text, path string) error
}

type RecapOutcome struct {
	Text     string
	DocxPath string
}

// RecapComposer turns an analysis into a styled recap with one generation
// call. Analyses are already condensed, so there is no chunking here.
type RecapComposer struct {
	gen      adapter.Generator
	prompts  *prompts.Catalog
	exporter DocumentExporter
	log      *zerolog.Logger
}

// NewRecapComposer builds a composer; exporter may be nil.
func NewRecapComposer(gen adapter.Generator, catalog *prompts.Catalog, exporter DocumentExporter, log *zerolog.Logger) *RecapComposer {
	if log == nil {
		log = logging.Nop()
	}
	return &RecapComposer{gen: gen, prompts: catalog, exporter: exporter, log: log}
}

func (c *RecapComposer) Compose(ctx context.Context, analysis, modelName string, style model.RecapStyle) (string, error) {
	return c.gen.Generate(ctx, modelName, c.prompts.RecapPrompt(style, analysis), RecapOptions)
}

// ComposeFile reads analysisPath and writes the recap verbatim to outputPath.
// A docx export failure is logged and does not fail the recap.
func (c *RecapComposer) ComposeFile(ctx context.Context, analysisPath, outputPath, modelName string, style model.RecapStyle) (*RecapOutcome, error) {
	b, err := os.ReadFile(analysisPath)
	if err != nil {
		return nil, fileError(err, analysisPath)
	}
	text, err := c.Compose(ctx, string(b), modelName, style)
	if err != nil {
		return nil, err
	}
	if err := writeOutput(outputPath, text); err != nil {
		return nil, err
	}

	out := &RecapOutcome{Text: text}
	if c.exporter != nil {
		docx := DocxPath(outputPath)
		if err := c.exporter.Export(text, docx); err != nil {
			logging.With(ctx, c.log).Warn().Err(err).Str("path", docx).Msg("docx export failed")
		} else {
			out.DocxPath = docx
		}
	}
	return out, nil
}
