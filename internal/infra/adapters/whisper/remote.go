// File: internal/infra/adapters/whisper/remote.go
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meeting-recap/internal/domain"
	"meeting-recap/internal/domain/ports/adapter"
	"meeting-recap/internal/infra/adapters/httperr"
	"meeting-recap/internal/infra/logging"
	"meeting-recap/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ adapter.Transcriber = (*Remote)(nil)

const (
	DefaultTimeout       = 600 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// Remote uploads media to a whisper HTTP server (POST /transcribe, multipart
// fields file, model, language) and expects {"text": "..."} back. Every
// upload is preceded by GET /health.
type Remote struct {
	host         string
	client       *http.Client
	healthClient *http.Client
	log          *zerolog.Logger
}

func NewRemote(host string, timeout, healthTimeout time.Duration, log *zerolog.Logger) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if healthTimeout <= 0 {
		healthTimeout = DefaultHealthTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Remote{
		host:         strings.TrimRight(host, "/"),
		client:       &http.Client{Timeout: timeout},
		healthClient: &http.Client{Timeout: healthTimeout},
		log:          log,
	}
}

// CheckHealth fails with ServerUnavailable unless GET /health answers 200.
func (r *Remote) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.host+"/health", nil)
	if err != nil {
		return domain.Wrap(domain.KindInvalidArgument, err, "Invalid Whisper host %q", r.host)
	}
	resp, err := r.healthClient.Do(req)
	if err != nil {
		return domain.Wrap(domain.KindServerUnavailable, err,
			"Cannot connect to remote Whisper server at %s. Server may be offline or unreachable", r.host)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &domain.Error{
			Kind:    domain.KindServerUnavailable,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Whisper server at %s is not healthy (status %d)", r.host, resp.StatusCode),
		}
	}
	return nil
}

// Models lists the server's models. Failures yield an empty list.
func (r *Remote) Models(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.host+"/models", nil)
	if err != nil {
		return []string{}
	}
	resp, err := r.healthClient.Do(req)
	if err != nil {
		r.log.Debug().Err(err).Msg("whisper models listing failed")
		return []string{}
	}
	defer resp.Body.Close()
	var body struct {
		Models []string `json:"models"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&body) != nil || body.Models == nil {
		return []string{}
	}
	return body.Models
}

func (r *Remote) Transcribe(ctx context.Context, in adapter.TranscribeInput) (path string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBackendCall("whisper_remote", httperr.Outcome(err), time.Since(start)) }()

	if err := r.CheckHealth(ctx); err != nil {
		return "", err
	}

	f, err := os.Open(in.FilePath)
	if err != nil {
		return "", domain.Errorf(domain.KindNotFound, "Audio file not found: %s", in.FilePath)
	}
	defer f.Close()

	// Stream the upload instead of buffering media in memory.
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(in.FilePath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.WriteField("model", in.Model)
		}
		if err == nil && in.Language != "" {
			err = mw.WriteField("language", in.Language)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/transcribe", pr)
	if err != nil {
		return "", domain.Wrap(domain.KindInvalidArgument, err, "Invalid Whisper host %q", r.host)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log := logging.With(ctx, r.log)
	log.Debug().Str("host", r.host).Str("file", in.FilePath).Str("model", in.Model).Msg("sending to remote whisper")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", httperr.Classify(err, "Whisper server", r.host)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httperr.Body(resp.Body)
		return "", &domain.Error{
			Kind:    domain.KindServerError,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Server error (%d): %s", resp.StatusCode, body),
		}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", domain.Wrap(domain.KindServerError, err, "Invalid response from Whisper server")
	}
	if strings.TrimSpace(result.Text) == "" {
		return "", domain.Errorf(domain.KindTranscription, "Empty transcription result")
	}
	if err := os.WriteFile(in.OutputPath, []byte(result.Text), 0o644); err != nil {
		return "", domain.Wrap(domain.KindPermissionDenied, err, "Cannot write transcript %s", in.OutputPath)
	}
	log.Info().Str("path", in.OutputPath).Int("bytes", len(result.Text)).Msg("remote transcript saved")
	return in.OutputPath, nil
}
