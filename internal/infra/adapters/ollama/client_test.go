package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meeting-recap/internal/config"
	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/adapters/ollama"
)

var analysisOpts = adapter.GenerateOptions{Temperature: 0.3, TopP: 0.9, NumCtx: 32768, NumPredict: 2048}

func TestGenerateSendsFixedOptions(t *testing.T) {
	var got struct {
		Model   string `json:"model"`
		Prompt  string `json:"prompt"`
		Stream  bool   `json:"stream"`
		Options struct {
			Temperature float64 `json:"temperature"`
			TopP        float64 `json:"top_p"`
			NumCtx      int     `json:"num_ctx"`
			NumPredict  int     `json:"num_predict"`
		} `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response":"the summary","done":true}`))
	}))
	defer srv.Close()

	c := ollama.NewClient(srv.URL+"/", time.Second, time.Second, nil)
	text, err := c.Generate(context.Background(), "gemma3n:latest", "Summarize: hi", analysisOpts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "the summary" {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "gemma3n:latest" || got.Prompt != "Summarize: hi" || got.Stream {
		t.Fatalf("request = %+v", got)
	}
	o := got.Options
	if o.Temperature != 0.3 || o.TopP != 0.9 || o.NumCtx != 32768 || o.NumPredict != 2048 {
		t.Fatalf("options = %+v", o)
	}
}

func TestGenerateErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   domain.Kind
	}{
		{"model missing", 404, `{"error":"model 'llama9' not found, try pulling it first"}`, domain.KindModelNotFound},
		{"oom", 500, `{"error":"model requires more system memory; resource limitations"}`, domain.KindModelCrashed},
		{"runner died", 500, `{"error":"llama runner process has unexpectedly stopped"}`, domain.KindModelCrashed},
		{"other", 502, `bad gateway`, domain.KindBackend},
		{"empty", 200, `{"response":""}`, domain.KindBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := ollama.NewClient(srv.URL, time.Second, time.Second, nil).
				Generate(context.Background(), "llama9", "p", analysisOpts)
			if got := domain.KindOf(err); got != tc.want {
				t.Fatalf("kind = %s, want %s (err=%v)", got, tc.want, err)
			}
			var de *domain.Error
			if errors.As(err, &de) && de.Status != tc.status {
				t.Fatalf("status = %d, want %d", de.Status, tc.status)
			}
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := ollama.NewClient(srv.URL, 50*time.Millisecond, time.Second, nil).
		Generate(context.Background(), "m", "p", analysisOpts)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestModelAvailable(t *testing.T) {
	installed := []string{"gemma3n:e4b", "llama3.2:latest"}
	for model, want := range map[string]bool{
		"gemma3n:e4b":    true,
		"gemma3n":        true,
		"gemma3n:latest": true,
		"llama3.2":       true,
		"mistral":        false,
	} {
		if got := ollama.ModelAvailable(installed, model); got != want {
			t.Errorf("ModelAvailable(%q) = %v, want %v", model, got, want)
		}
	}
}

func TestProviderHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"gemma3n:e4b"},{"name":"llama3.2:latest"}]}`))
	}))
	defer srv.Close()

	p := ollama.NewProvider(config.OllamaConfig{URL: srv.URL}, nil)
	rep, err := p.Health(context.Background(), "", "gemma3n")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if rep.Status != "online" || len(rep.Models) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.ModelAvailable == nil || !*rep.ModelAvailable {
		t.Fatalf("model_available = %v", rep.ModelAvailable)
	}

	rep, err = p.Health(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("health without model: %v", err)
	}
	if rep.ModelAvailable != nil {
		t.Fatal("model_available should be omitted when no model is given")
	}
}

func TestProviderHealthFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := ollama.NewProvider(config.OllamaConfig{}, nil)
	_, err := p.Health(context.Background(), srv.URL, "m")
	if domain.KindOf(err) != domain.KindServerUnavailable {
		t.Fatalf("want server_unavailable, got %v", err)
	}
	if err.Error() != "Ollama server returned status 503" {
		t.Fatalf("message = %q", err.Error())
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	_, err = p.Health(context.Background(), url, "m")
	if domain.KindOf(err) != domain.KindConnection {
		t.Fatalf("want connection error, got %v", err)
	}
}
