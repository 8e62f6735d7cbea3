// Package watcher turns media files dropped into an inbox directory into
// transcription jobs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"meeting-recap/internal/infra/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// SubmitFunc hands a newly arrived file to the orchestrator.
type SubmitFunc func(ctx context.Context, path string) error

// AcceptFunc filters events before the settle delay.
type AcceptFunc func(path string) bool

type Watcher struct {
	dir    string
	settle time.Duration
	accept AcceptFunc
	submit SubmitFunc
	log    *zerolog.Logger

	fw *fsnotify.Watcher
	wg sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
}

// New watches dir. Files are submitted settle after their create event so
// that writers have a chance to finish.
func New(dir string, settle time.Duration, accept AcceptFunc, submit SubmitFunc, log *zerolog.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		accept:  accept,
		submit:  submit,
		log:     log,
		fw:      fw,
		pending: make(map[string]struct{}),
	}, nil
}

// Run blocks until ctx is cancelled, then waits for in-flight submissions.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info().Str("dir", w.dir).Dur("settle", w.settle).Msg("inbox watcher started")
	defer w.fw.Close()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.log.Info().Msg("inbox watcher stopped")
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if w.accept != nil && !w.accept(ev.Name) {
				w.log.Debug().Str("file", ev.Name).Msg("ignoring non-media file")
				continue
			}
			w.schedule(ctx, ev.Name)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	if _, dup := w.pending[path]; dup {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
		}()

		t := time.NewTimer(w.settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		if err := w.submit(ctx, path); err != nil {
			w.log.Warn().Err(err).Str("file", path).Msg("inbox file rejected")
			return
		}
		w.log.Info().Str("file", path).Msg("inbox file submitted")
	}()
}
