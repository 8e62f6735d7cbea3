package ollama

import (
	"context"
	"strings"
	"sync"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ adapter.GeneratorProvider = (*Provider)(nil)

// Provider caches one client per base URL. The concurrency cap is shared
// across all URLs.
type Provider struct {
	cfg config.OllamaConfig
	log *zerolog.Logger
	sem chan struct{}

	mu      sync.Mutex
	clients map[string]*Client
}

func NewProvider(cfg config.OllamaConfig, log *zerolog.Logger) *Provider {
	p := &Provider{cfg: cfg, log: log, clients: make(map[string]*Client)}
	if cfg.MaxConcurrent > 0 {
		p.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	return p
}

func (p *Provider) Generator(baseURL string) adapter.Generator {
	c := p.client(baseURL)
	if p.sem == nil {
		return c
	}
	return &limitedGenerator{inner: c, sem: p.sem}
}

func (p *Provider) Health(ctx context.Context, baseURL, model string) (adapter.HealthReport, error) {
	c := p.client(baseURL)
	names, err := c.Models(ctx)
	if err != nil {
		return adapter.HealthReport{}, err
	}
	rep := adapter.HealthReport{Status: "online", Host: c.base, Models: names}
	if model = strings.TrimSpace(model); model != "" {
		ok := ModelAvailable(names, model)
		rep.ModelAvailable = &ok
	}
	return rep, nil
}

func (p *Provider) client(baseURL string) *Client {
	if baseURL == "" {
		baseURL = p.cfg.URL
	}
	key := strings.TrimRight(baseURL, "/")
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c
	}
	c := NewClient(key, p.cfg.Timeout, p.cfg.HealthTimeout, p.log)
	p.clients[key] = c
	return c
}
