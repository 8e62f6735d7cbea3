package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/infra/prompts"
	"meeting-recap/internal/infra/tokens"
	"meeting-recap/internal/usecase"
)

// uniformText builds n lines of width characters each (excluding newline).
func uniformText(n, width int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%0*d", width, i)
	}
	return strings.Join(lines, "\n")
}

func TestSplitChunksRoundTrip(t *testing.T) {
	texts := []string{
		"",
		"short",
		uniformText(600, 99),
		"a\n\n\nb\n",
		strings.Repeat("é", 30) + "\n" + strings.Repeat("z", 5),
	}
	for _, text := range texts {
		for _, max := range []int{5, 17, 250, 25000} {
			chunks := usecase.SplitChunks(text, max)
			if got := strings.Join(chunks, "\n"); got != text {
				t.Fatalf("round trip failed for max=%d", max)
			}
			for _, c := range chunks {
				if utf8.RuneCountInString(c) > max && !strings.Contains(text, c) {
					t.Fatalf("chunk is not a slice of the input")
				}
				if utf8.RuneCountInString(c) > max && strings.Contains(c, "\n") {
					t.Fatalf("multi-line chunk of %d runes exceeds max %d", utf8.RuneCountInString(c), max)
				}
			}
		}
	}
}

func TestSplitChunksCountForUniformLines(t *testing.T) {
	// 600 lines of 100 chars including newline: 60,000 characters.
	text := uniformText(600, 99)
	if got := len(usecase.SplitChunks(text, 25000)); got != 3 {
		t.Fatalf("chunks = %d, want ceil(60000/25000) = 3", got)
	}
	if got := len(usecase.SplitChunks(text, 10000)); got != 6 {
		t.Fatalf("chunks = %d, want 6", got)
	}
}

func TestSplitChunksOversizedLineStandsAlone(t *testing.T) {
	long := strings.Repeat("x", 40)
	chunks := usecase.SplitChunks("ab\n"+long+"\ncd", 10)
	want := []string{"ab", long, "cd"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q", chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func newAnalyzer(gen *stubGenerator) *usecase.ChunkedAnalyzer {
	return usecase.NewChunkedAnalyzer(gen, prompts.Default(), tokens.NewApproximate(), 25000, nil)
}

func TestAnalyzeSkipsFailedChunk(t *testing.T) {
	gen := &stubGenerator{reply: func(n int, prompt string) (string, error) {
		if n == 2 {
			return "", domain.Errorf(domain.KindTimeout, "Request timed out")
		}
		return fmt.Sprintf("analysis %d", n), nil
	}}

	out, err := newAnalyzer(gen).Analyze(context.Background(), uniformText(600, 99), "gemma3n:latest", model.TaskSummary)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := "[Analysis combined from 2 chunks]\n\n--- Part 1 ---\nanalysis 1\n\n--- Part 2 ---\nanalysis 3\n\n"
	if out.Text != want {
		t.Fatalf("text = %q\nwant %q", out.Text, want)
	}
	if out.ChunkCount != 3 || len(out.Skipped) != 1 || out.Skipped[0] != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.EstimatedTokens == 0 {
		t.Error("expected a token estimate")
	}

	for _, c := range gen.calls {
		if c.opts != usecase.AnalysisOptions || c.model != "gemma3n:latest" {
			t.Fatalf("unexpected call options: %+v", c.opts)
		}
		if !strings.HasPrefix(c.prompt, "Please provide a concise summary") {
			t.Fatalf("summary template not used")
		}
	}
}

func TestAnalyzeSingleChunkIsVerbatim(t *testing.T) {
	gen := &stubGenerator{reply: func(int, string) (string, error) { return "just one", nil }}
	out, err := newAnalyzer(gen).Analyze(context.Background(), "Alice: hi\nBob: hello", "m", model.TaskKeyPoints)
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "just one" || out.ChunkCount != 1 || len(out.Skipped) != 0 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestAnalyzeAllChunksFailed(t *testing.T) {
	gen := &stubGenerator{reply: func(int, string) (string, error) {
		return "", domain.Errorf(domain.KindModelCrashed, "model crashed")
	}}
	_, err := newAnalyzer(gen).Analyze(context.Background(), uniformText(600, 99), "m", model.TaskSummary)
	if !errors.Is(err, domain.ErrAllChunksFailed) {
		t.Fatalf("err = %v, want AllChunksFailed", err)
	}
	if domain.CategoryOf(domain.KindOf(err)) != domain.CategoryTotalFailure {
		t.Fatalf("category = %s", domain.CategoryOf(domain.KindOf(err)))
	}

	// A transcript that fits one chunk surfaces the backend error itself.
	_, err = newAnalyzer(gen).Analyze(context.Background(), "short", "m", model.TaskSummary)
	if !errors.Is(err, domain.ErrModelCrashed) {
		t.Fatalf("err = %v, want ModelCrashed", err)
	}
}

func TestAnalyzeIsIdempotentWithDeterministicBackend(t *testing.T) {
	gen := &stubGenerator{reply: func(_ int, prompt string) (string, error) {
		return fmt.Sprintf("len=%d", len(prompt)), nil
	}}
	text := uniformText(600, 99)
	a := newAnalyzer(gen)

	first, err := a.Analyze(context.Background(), text, "m", model.TaskQuestions)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(context.Background(), text, "m", model.TaskQuestions)
	if err != nil {
		t.Fatal(err)
	}
	if first.Text != second.Text {
		t.Fatal("analysis is not deterministic")
	}
}

func TestAnalyzeFileWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "m_transcript.txt")
	if err := os.WriteFile(in, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "nested", "m_analysis.txt")

	gen := &stubGenerator{reply: func(int, string) (string, error) { return "summary text", nil }}
	if _, err := newAnalyzer(gen).AnalyzeFile(context.Background(), in, out, "m", model.TaskSummary); err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || string(b) != "summary text" {
		t.Fatalf("output = %q, %v", b, err)
	}

	_, err = newAnalyzer(gen).AnalyzeFile(context.Background(), filepath.Join(dir, "missing.txt"), out, "m", model.TaskSummary)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}
