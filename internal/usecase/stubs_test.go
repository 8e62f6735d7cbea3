package usecase_test

import (
	"context"
	"os"
	"sync"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/jobstore"
)

type generateCall struct {
	model  string
	prompt string
	opts   adapter.GenerateOptions
}

// stubGenerator answers with reply(n, prompt) where n is the 1-based call
// number.
type stubGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	reply func(n int, prompt string) (string, error)
}

func (g *stubGenerator) Generate(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, generateCall{model: modelName, prompt: prompt, opts: opts})
	n := len(g.calls)
	g.mu.Unlock()
	return g.reply(n, prompt)
}

type stubGeneratorProvider struct {
	gen  adapter.Generator
	urls []string
}

func (p *stubGeneratorProvider) Generator(baseURL string) adapter.Generator {
	p.urls = append(p.urls, baseURL)
	return p.gen
}

func (p *stubGeneratorProvider) Health(ctx context.Context, baseURL, modelName string) (adapter.HealthReport, error) {
	return adapter.HealthReport{Status: "online", Host: baseURL}, nil
}

// stubTranscriber writes text to the requested output path.
type stubTranscriber struct {
	text    string
	err     error
	loadErr error
	loaded  []string
}

func (s *stubTranscriber) LoadModel(ctx context.Context, name string) error {
	s.loaded = append(s.loaded, name)
	return s.loadErr
}

func (s *stubTranscriber) Transcribe(ctx context.Context, in adapter.TranscribeInput) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if err := os.WriteFile(in.OutputPath, []byte(s.text), 0o644); err != nil {
		return "", err
	}
	return in.OutputPath, nil
}

// remoteStub has no LoadModel, like the HTTP variant.
type remoteStub struct{ err error }

func (r *remoteStub) Transcribe(ctx context.Context, in adapter.TranscribeInput) (string, error) {
	return "", r.err
}

type stubTranscriberProvider struct {
	local  adapter.Transcriber
	remote adapter.Transcriber
}

func (p *stubTranscriberProvider) Transcriber(mode model.TranscriptionMode, host string) (adapter.Transcriber, error) {
	if mode == model.TranscriptionRemote {
		return p.remote, nil
	}
	return p.local, nil
}

func (p *stubTranscriberProvider) Health(ctx context.Context, host string) (adapter.HealthReport, error) {
	return adapter.HealthReport{}, domain.Errorf(domain.KindServerUnavailable, "offline")
}

// recordingRepo remembers the progress value after every update.
type recordingRepo struct {
	*jobstore.Memory
	mu       sync.Mutex
	progress map[string][]int
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{Memory: jobstore.NewMemory(), progress: map[string][]int{}}
}

func (r *recordingRepo) Update(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	j, err := r.Memory.Update(ctx, id, fn)
	if err == nil {
		r.mu.Lock()
		r.progress[id] = append(r.progress[id], j.Progress)
		r.mu.Unlock()
	}
	return j, err
}

func (r *recordingRepo) seen(id string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress[id]...)
}
