package whisper

import (
	"context"
	"sync"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/model"
	"meeting-recap/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ adapter.TranscriberProvider = (*Provider)(nil)

// Provider hands out the local transcriber (one per process, so its model
// cache is shared) or a remote client per host.
type Provider struct {
	cfg   config.WhisperConfig
	local adapter.Transcriber
	log   *zerolog.Logger

	mu      sync.Mutex
	remotes map[string]*Remote
}

func NewProvider(cfg config.WhisperConfig, log *zerolog.Logger) *Provider {
	return &Provider{cfg: cfg, local: NewLocal(cfg, log), log: log, remotes: make(map[string]*Remote)}
}

func (p *Provider) Transcriber(mode model.TranscriptionMode, host string) (adapter.Transcriber, error) {
	switch mode {
	case model.TranscriptionLocal:
		return p.local, nil
	case model.TranscriptionRemote:
		return p.remote(host), nil
	default:
		return nil, domain.Errorf(domain.KindInvalidArgument, "Unknown transcription mode: %s", mode)
	}
}

// Health probes a remote whisper server: GET /health, then a best-effort
// model listing.
func (p *Provider) Health(ctx context.Context, host string) (adapter.HealthReport, error) {
	r := p.remote(host)
	if err := r.CheckHealth(ctx); err != nil {
		return adapter.HealthReport{}, err
	}
	return adapter.HealthReport{Status: "online", Host: host, Models: r.Models(ctx)}, nil
}

func (p *Provider) remote(host string) *Remote {
	if host == "" {
		host = p.cfg.Host
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.remotes[host]; ok {
		return r
	}
	r := NewRemote(host, p.cfg.Timeout, p.cfg.HealthTimeout, p.log)
	p.remotes[host] = r
	return r
}
