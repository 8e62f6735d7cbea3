package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"meeting-recap/internal/infra/watcher"
)

func TestWatcherSubmitsAcceptedFiles(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []string
	submitted := make(chan struct{}, 4)
	submit := func(ctx context.Context, path string) error {
		mu.Lock()
		got = append(got, filepath.Base(path))
		mu.Unlock()
		submitted <- struct{}{}
		return nil
	}
	accept := func(path string) bool { return strings.HasSuffix(path, ".mp3") }

	w, err := watcher.New(dir, 20*time.Millisecond, accept, submit, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "standup.mp3"), []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-submitted:
	case <-time.After(3 * time.Second):
		t.Fatal("file was not submitted")
	}

	// Give a stray submission for the .txt file a chance to show up.
	time.Sleep(100 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "standup.mp3" {
		t.Fatalf("submitted = %v", got)
	}
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := watcher.New(filepath.Join(t.TempDir(), "missing"), time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
