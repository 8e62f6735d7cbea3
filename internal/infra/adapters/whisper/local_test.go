package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/ports/adapter"
)

type fakeRunner struct {
	calls []string
	run   func(name string, args []string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, name)
	return f.run(name, args)
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func localFixture(t *testing.T, runner commandRunner) (*Local, string, string) {
	t.Helper()
	root := t.TempDir()
	models := filepath.Join(root, "models")
	_ = os.MkdirAll(models, 0o755)
	if err := os.WriteFile(filepath.Join(models, "ggml-base.en.bin"), []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(root, "talk.mp3")
	_ = os.WriteFile(in, []byte("id3"), 0o644)

	cfg := config.Default().Whisper
	cfg.ModelsDir = models
	cfg.FFmpegPath = "ffmpeg-test"
	cfg.BinaryPath = "whisper-test"
	return newLocal(cfg, runner, nil), in, filepath.Join(root, "talk_base_transcript.txt")
}

func TestLocalTranscribe(t *testing.T) {
	runner := &fakeRunner{run: func(name string, args []string) (commandResult, error) {
		switch name {
		case "ffmpeg-test":
			return commandResult{}, os.WriteFile(args[len(args)-1], []byte("wav"), 0o644)
		case "whisper-test":
			if argValue(args, "-l") != "en" || argValue(args, "-t") != "4" {
				return commandResult{ExitCode: 2}, errors.New("bad args")
			}
			return commandResult{}, os.WriteFile(argValue(args, "-of")+".txt", []byte("  hello world\n"), 0o644)
		}
		return commandResult{}, errors.New("unexpected command " + name)
	}}
	l, in, out := localFixture(t, runner)

	if err := l.LoadModel(context.Background(), "base"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	path, err := l.Transcribe(context.Background(), adapter.TranscribeInput{FilePath: in, Model: "base", Language: "en", OutputPath: out})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "hello world" {
		t.Fatalf("transcript = %q", b)
	}
	if len(runner.calls) != 2 || runner.calls[0] != "ffmpeg-test" || runner.calls[1] != "whisper-test" {
		t.Fatalf("calls = %v", runner.calls)
	}
}

func TestLocalModelLoadFailure(t *testing.T) {
	l, _, _ := localFixture(t, &fakeRunner{})
	err := l.LoadModel(context.Background(), "large")
	if !errors.Is(err, domain.ErrModelLoad) {
		t.Fatalf("err = %v, want ModelLoad", err)
	}
}

func TestLocalModelIsResolvedOnce(t *testing.T) {
	l, _, _ := localFixture(t, &fakeRunner{})
	if err := l.LoadModel(context.Background(), "base"); err != nil {
		t.Fatal(err)
	}
	// Removing the weights after the first load does not matter any more.
	_ = os.Remove(filepath.Join(l.modelsDir, "ggml-base.en.bin"))
	if err := l.LoadModel(context.Background(), "base"); err != nil {
		t.Fatalf("second load: %v", err)
	}
}

func TestLocalFFmpegFailureIsTranscriptionError(t *testing.T) {
	runner := &fakeRunner{run: func(name string, args []string) (commandResult, error) {
		return commandResult{ExitCode: 1, Stderr: "Invalid data found"}, errors.New("exit status 1")
	}}
	l, in, out := localFixture(t, runner)
	_, err := l.Transcribe(context.Background(), adapter.TranscribeInput{FilePath: in, Model: "base", OutputPath: out})
	if !errors.Is(err, domain.ErrTranscription) {
		t.Fatalf("err = %v, want Transcription", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("whisper should not run after ffmpeg failed: %v", runner.calls)
	}
}
