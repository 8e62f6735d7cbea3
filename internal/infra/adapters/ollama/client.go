// File: internal/infra/adapters/ollama/client.go
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/adapters/httperr"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Generator = (*Client)(nil)

const (
	DefaultTimeout       = 600 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// Client talks to Ollama's native API: POST /api/generate (non-streaming)
// and GET /api/tags.
type Client struct {
	base         string
	client       *http.Client
	healthClient *http.Client
	log          *zerolog.Logger
}

func NewClient(baseURL string, timeout, healthTimeout time.Duration, log *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if healthTimeout <= 0 {
		healthTimeout = DefaultHealthTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		base:         strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		healthClient: &http.Client{Timeout: healthTimeout},
		log:          log,
	}
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumCtx      int     `json:"num_ctx"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

func (c *Client) Generate(ctx context.Context, model, prompt string, opts adapter.GenerateOptions) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBackendCall("ollama", httperr.Outcome(err), time.Since(start)) }()

	b, _ := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumCtx:      opts.NumCtx,
			NumPredict:  opts.NumPredict,
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/generate", bytes.NewReader(b))
	if err != nil {
		return "", domain.Wrap(domain.KindInvalidArgument, err, "Invalid Ollama URL %q", c.base)
	}
	req.Header.Set("Content-Type", "application/json")

	log := logging.With(ctx, c.log)
	log.Debug().Str("url", c.base).Str("model", model).Int("prompt_chars", len(prompt)).Msg("ollama generate")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", httperr.Classify(err, "Ollama server", c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := classifyStatus(model, resp)
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("ollama generate failed")
		return "", err
	}

	var payload struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", domain.Wrap(domain.KindBackend, err, "Invalid response from Ollama")
	}
	if payload.Response == "" {
		return "", &domain.Error{Kind: domain.KindBackend, Status: resp.StatusCode, Message: "Empty response from model"}
	}
	return payload.Response, nil
}

// classifyStatus reads Ollama's {"error": "..."} body and picks a kind from
// its wording.
func classifyStatus(model string, resp *http.Response) error {
	raw := httperr.Body(resp.Body)
	msg := raw
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(raw), &body) == nil && body.Error != "" {
		msg = body.Error
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"):
		return &domain.Error{Kind: domain.KindModelNotFound, Status: resp.StatusCode,
			Message: fmt.Sprintf("Model '%s' not found in Ollama (install with: ollama pull %s)", model, model)}
	case strings.Contains(lower, "resource limitations"), strings.Contains(lower, "unexpectedly stopped"):
		return &domain.Error{Kind: domain.KindModelCrashed, Status: resp.StatusCode,
			Message: fmt.Sprintf("Model crashed (possibly out of memory): %s", msg)}
	default:
		return &domain.Error{Kind: domain.KindBackend, Status: resp.StatusCode,
			Message: fmt.Sprintf("Error: %d - %s", resp.StatusCode, msg)}
	}
}

// Models lists installed model names via GET /api/tags.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/tags", nil)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidArgument, err, "Invalid Ollama URL %q", c.base)
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		return nil, httperr.Classify(err, "Ollama server", c.base)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.Error{Kind: domain.KindServerUnavailable, Status: resp.StatusCode,
			Message: fmt.Sprintf("Ollama server returned status %d", resp.StatusCode)}
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, domain.Wrap(domain.KindBackend, err, "Invalid response from Ollama")
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ModelAvailable reports whether model is installed, by exact name or by
// the same base name before the tag (gemma3n matches gemma3n:e4b).
func ModelAvailable(installed []string, model string) bool {
	base, _, _ := strings.Cut(model, ":")
	for _, name := range installed {
		if name == model {
			return true
		}
		if b, _, _ := strings.Cut(name, ":"); b == base {
			return true
		}
	}
	return false
}
