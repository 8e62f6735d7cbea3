// File: internal/usecase/analyzer_uc.go
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"
	"meeting-recap/internal/infra/prompts"

	"github.com/rs/zerolog"
)

const DefaultMaxChunkChars = 25000

// AnalysisOptions is the fixed generation configuration for analysis calls.
var AnalysisOptions = adapter.GenerateOptions{
	Temperature: 0.3,
	TopP:        0.9,
	NumCtx:      32768,
	NumPredict:  2048,
}

// TokenCounter estimates the token size of a prompt.
type TokenCounter interface {
	Count(text string) int
}

// AnalysisOutcome is the result of one analysis. Chunk numbers in Skipped are
// 1-based positions in document order.
type AnalysisOutcome struct {
	Text            string
	ChunkCount      int
	Skipped         []int
	EstimatedTokens int
}

// ChunkedAnalyzer splits oversized transcripts at line boundaries, analyzes
// each chunk independently and concatenates whatever succeeded.
type ChunkedAnalyzer struct {
	gen      adapter.Generator
	prompts  *prompts.Catalog
	tokens   TokenCounter
	maxChars int
	log      *zerolog.Logger
}

func NewChunkedAnalyzer(gen adapter.Generator, catalog *prompts.Catalog, tokens TokenCounter, maxChars int, log *zerolog.Logger) *ChunkedAnalyzer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	if log == nil {
		log = logging.Nop()
	}
	return &ChunkedAnalyzer{gen: gen, prompts: catalog, tokens: tokens, maxChars: maxChars, log: log}
}

// SplitChunks cuts text into line-aligned chunks of at most maxChars
// characters, each line counting one extra for its newline. A line longer
// than maxChars becomes its own chunk. Joining the chunks with "\n" gives
// back text.
func SplitChunks(text string, maxChars int) []string {
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}
	var (
		chunks  []string
		current []string
		size    int
	)
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line) + 1
		if size+n > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current, size = nil, 0
		}
		current = append(current, line)
		size += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

// CombineParts joins successful chunk analyses in order. A single part is
// returned verbatim.
func CombineParts(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Analysis combined from %d chunks]\n\n", len(parts))
	for i, p := range parts {
		fmt.Fprintf(&b, "--- Part %d ---\n%s\n\n", i+1, p)
	}
	return b.String()
}

func (a *ChunkedAnalyzer) Analyze(ctx context.Context, text, modelName string, task model.AnalysisTask) (*AnalysisOutcome, error) {
	log := logging.With(ctx, a.log)
	defer logging.TraceDuration(log, "ChunkedAnalyzer.Analyze")()

	chunks := SplitChunks(text, a.maxChars)
	out := &AnalysisOutcome{ChunkCount: len(chunks)}
	if len(chunks) > 1 {
		log.Info().Int("chars", utf8.RuneCountInString(text)).Int("chunks", len(chunks)).Msg("transcript chunked")
	}

	var (
		parts   []string
		lastErr error
	)
	for i, chunk := range chunks {
		prompt := a.prompts.AnalysisPrompt(task, chunk)
		if a.tokens != nil {
			n := a.tokens.Count(prompt)
			out.EstimatedTokens += n
			if n > AnalysisOptions.NumCtx {
				log.Warn().Int("chunk", i+1).Int("tokens", n).Int("num_ctx", AnalysisOptions.NumCtx).Msg("prompt exceeds context window")
			}
		}

		res, err := a.gen.Generate(ctx, modelName, prompt, AnalysisOptions)
		if err != nil {
			lastErr = err
			out.Skipped = append(out.Skipped, i+1)
			metrics.IncAnalysisChunk("skipped")
			log.Warn().Err(err).Int("chunk", i+1).Int("of", len(chunks)).
				Str("error_kind", string(domain.KindOf(err))).Msg("chunk failed, continuing")
			continue
		}
		metrics.IncAnalysisChunk("ok")
		parts = append(parts, res)
	}

	switch {
	case len(parts) > 0:
		out.Text = CombineParts(parts)
		return out, nil
	case len(chunks) == 1:
		// Nothing to degrade to: surface the backend's own error.
		return nil, lastErr
	default:
		return nil, domain.Wrap(domain.KindAllChunksFailed, lastErr, "All %d chunks failed", len(chunks))
	}
}

// AnalyzeFile is the persisted variant: it reads transcriptPath and writes
// the analysis verbatim to outputPath.
func (a *ChunkedAnalyzer) AnalyzeFile(ctx context.Context, transcriptPath, outputPath, modelName string, task model.AnalysisTask) (*AnalysisOutcome, error) {
	b, err := os.ReadFile(transcriptPath)
	if err != nil {
		return nil, fileError(err, transcriptPath)
	}
	out, err := a.Analyze(ctx, string(b), modelName, task)
	if err != nil {
		return nil, err
	}
	if err := writeOutput(outputPath, out.Text); err != nil {
		return nil, err
	}
	return out, nil
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.Wrap(domain.KindPermissionDenied, err, "Cannot create output directory")
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return domain.Wrap(domain.KindPermissionDenied, err, "Cannot write %s", path)
	}
	return nil
}

func fileError(err error, path string) error {
	if os.IsNotExist(err) {
		return domain.Errorf(domain.KindNotFound, "File not found: %s", path)
	}
	return domain.Wrap(domain.KindPermissionDenied, err, "Cannot read file: %s", path)
}
