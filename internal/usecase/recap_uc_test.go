package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/infra/prompts"
	"meeting-recap/internal/usecase"
)

type stubExporter struct {
	paths []string
	err   error
}

func (e *stubExporter) Export(text, path string) error {
	e.paths = append(e.paths, path)
	return e.err
}

func TestComposeFileWritesRecapAndDocx(t *testing.T) {
	dir := t.TempDir()
	analysis := filepath.Join(dir, "s_analysis.txt")
	if err := os.WriteFile(analysis, []byte("The heroes crossed the bridge."), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "s_recap.txt")

	gen := &stubGenerator{reply: func(int, string) (string, error) { return "Previously...", nil }}
	exp := &stubExporter{}
	c := usecase.NewRecapComposer(gen, prompts.Default(), exp, nil)

	res, err := c.ComposeFile(context.Background(), analysis, out, "gemma3n:latest", model.StyleDramatic)
	if err != nil {
		t.Fatalf("ComposeFile: %v", err)
	}
	b, _ := os.ReadFile(out)
	if string(b) != "Previously..." {
		t.Fatalf("recap file = %q", b)
	}
	if res.DocxPath != filepath.Join(dir, "s_recap.docx") || len(exp.paths) != 1 {
		t.Fatalf("docx = %q, exports = %v", res.DocxPath, exp.paths)
	}

	call := gen.calls[0]
	if call.opts != usecase.RecapOptions || call.opts.Temperature != 0.7 {
		t.Fatalf("opts = %+v", call.opts)
	}
	if !strings.Contains(call.prompt, "Use present tense for immediacy") ||
		!strings.Contains(call.prompt, "The heroes crossed the bridge.") {
		t.Fatal("prompt is missing style guide or analysis")
	}
}

func TestComposeFileExportFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	analysis := filepath.Join(dir, "a_analysis.txt")
	_ = os.WriteFile(analysis, []byte("x"), 0o644)

	gen := &stubGenerator{reply: func(int, string) (string, error) { return "recap", nil }}
	c := usecase.NewRecapComposer(gen, prompts.Default(), &stubExporter{err: errors.New("disk full")}, nil)
	res, err := c.ComposeFile(context.Background(), analysis, filepath.Join(dir, "a_recap.txt"), "m", model.StyleEpic)
	if err != nil {
		t.Fatalf("ComposeFile: %v", err)
	}
	if res.DocxPath != "" {
		t.Fatalf("docx path should be empty after a failed export, got %s", res.DocxPath)
	}
}

func TestComposePropagatesBackendError(t *testing.T) {
	gen := &stubGenerator{reply: func(int, string) (string, error) {
		return "", domain.Errorf(domain.KindModelNotFound, "Model 'x' not found")
	}}
	_, err := usecase.NewRecapComposer(gen, prompts.Default(), nil, nil).Compose(context.Background(), "a", "x", model.StyleConcise)
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Fatalf("err = %v", err)
	}
}
