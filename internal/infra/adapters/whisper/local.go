// File: internal/infra/adapters/whisper/local.go
package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/adapters/httperr"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time checks
var (
	_ adapter.Transcriber = (*Local)(nil)
	_ adapter.ModelLoader = (*Local)(nil)
)

// commandResult is one finished process.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for tests.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
	}
	return res, err
}

// Local runs whisper.cpp on this machine: ffmpeg converts the input to 16 kHz
// mono WAV, then the whisper CLI writes a .txt transcript. Model files are
// resolved from a size tag once per process and cached.
type Local struct {
	ffmpegPath string
	binaryPath string
	modelsDir  string
	threads    int
	runner     commandRunner
	log        *zerolog.Logger

	mu     sync.Mutex
	models map[string]string // tag -> model file
}

func NewLocal(cfg config.WhisperConfig, log *zerolog.Logger) *Local {
	return newLocal(cfg, execRunner{}, log)
}

func newLocal(cfg config.WhisperConfig, runner commandRunner, log *zerolog.Logger) *Local {
	if log == nil {
		log = logging.Nop()
	}
	return &Local{
		ffmpegPath: cfg.FFmpegPath,
		binaryPath: cfg.BinaryPath,
		modelsDir:  cfg.ModelsDir,
		threads:    cfg.Threads,
		runner:     runner,
		log:        log,
		models:     make(map[string]string),
	}
}

// LoadModel resolves and checks the model file for tag. Later calls for the
// same tag are free.
func (l *Local) LoadModel(ctx context.Context, tag string) error {
	_, err := l.model(tag)
	return err
}

func (l *Local) model(tag string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.models[tag]; ok {
		return p, nil
	}
	p, err := resolveModel(l.modelsDir, tag)
	if err != nil {
		return "", err
	}
	l.log.Info().Str("model", tag).Str("path", p).Msg("whisper model loaded")
	l.models[tag] = p
	return p, nil
}

// resolveModel maps "medium" to <dir>/ggml-medium.bin (or .en.bin). A tag
// that is itself a path to a file is used as is.
func resolveModel(dir, tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", domain.Errorf(domain.KindModelLoad, "Whisper model is required")
	}
	candidates := []string{tag}
	if !strings.ContainsRune(tag, filepath.Separator) {
		candidates = []string{
			filepath.Join(dir, "ggml-"+tag+".bin"),
			filepath.Join(dir, "ggml-"+tag+".en.bin"),
			filepath.Join(dir, "ggml-"+tag+"-v3.bin"),
		}
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() == 0 {
			return "", domain.Errorf(domain.KindModelLoad, "Whisper model file is empty: %s", c)
		}
		return c, nil
	}
	return "", domain.Errorf(domain.KindModelLoad, "Failed to load model: no weights for %q in %s", tag, dir)
}

func (l *Local) Transcribe(ctx context.Context, in adapter.TranscribeInput) (path string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBackendCall("whisper_local", httperr.Outcome(err), time.Since(start)) }()
	log := logging.With(ctx, l.log)

	modelPath, err := l.model(in.Model)
	if err != nil {
		return "", err
	}

	tmp, err := os.MkdirTemp("", "meeting-recap-*")
	if err != nil {
		return "", domain.Wrap(domain.KindTranscription, err, "failed to create temporary workspace")
	}
	defer os.RemoveAll(tmp)

	wav := filepath.Join(tmp, "input-16k-mono.wav")
	res, err := l.runner.Run(ctx, l.ffmpegPath, ffmpegArgs(in.FilePath, wav)...)
	if err != nil {
		log.Error().Err(err).Int("exit", res.ExitCode).Str("stderr", tail(res.Stderr)).Msg("ffmpeg failed")
		return "", domain.Wrap(domain.KindTranscription, err, "ffmpeg audio conversion failed: %s", tail(res.Stderr))
	}

	// whisper-cli appends .txt to the -of base.
	base := strings.TrimSuffix(in.OutputPath, filepath.Ext(in.OutputPath))
	written := base + ".txt"
	res, err = l.runner.Run(ctx, l.binaryPath, whisperArgs(modelPath, wav, base, in.Language, l.threads)...)
	if err != nil {
		log.Error().Err(err).Int("exit", res.ExitCode).Str("stderr", tail(res.Stderr)).Msg("whisper failed")
		return "", domain.Wrap(domain.KindTranscription, err, "whisper.cpp transcription failed: %s", tail(res.Stderr))
	}

	raw, err := os.ReadFile(written)
	if err != nil {
		return "", domain.Wrap(domain.KindTranscription, err, "whisper.cpp completed but transcript file is missing")
	}
	text := strings.TrimSpace(string(raw))
	if err := os.WriteFile(in.OutputPath, []byte(text), 0o644); err != nil {
		return "", domain.Wrap(domain.KindPermissionDenied, err, "Cannot write transcript %s", in.OutputPath)
	}
	if written != in.OutputPath {
		_ = os.Remove(written)
	}
	log.Info().Str("path", in.OutputPath).Int("bytes", len(text)).Msg("local transcript saved")
	return in.OutputPath, nil
}

func ffmpegArgs(input, out string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le",
		out,
	}
}

func whisperArgs(modelPath, audio, outBase, language string, threads int) []string {
	args := []string{"-m", modelPath, "-f", audio, "-of", outBase, "-otxt", "-nt"}
	if lang := strings.TrimSpace(language); lang != "" && !strings.EqualFold(lang, "auto") {
		args = append(args, "-l", lang)
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	return args
}

// tail keeps the last lines of a process's stderr for error messages.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 400 {
		return s
	}
	return fmt.Sprintf("...%s", s[len(s)-400:])
}
