package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "regex.txt")
	writeFile(t, path, "a\n")

	w := NewWatcher(path, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Let the first poll capture the initial state.
	time.Sleep(60 * time.Millisecond)
	writeFile(t, path, "a\nlonger\n")

	select {
	case evt := <-w.Events():
		if evt.Path != path {
			t.Errorf("Path = %q, want %q", evt.Path, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_NoEventWithoutChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "regex.txt")
	writeFile(t, path, "a\n")

	w := NewWatcher(path, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	go w.Run(ctx)

	select {
	case evt := <-w.Events():
		t.Errorf("unexpected event: %+v", evt)
	case <-ctx.Done():
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	t.Parallel()

	w := NewWatcher(filepath.Join(t.TempDir(), "absent.txt"), 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	go w.Run(ctx)

	select {
	case evt := <-w.Events():
		t.Errorf("unexpected event: %+v", evt)
	case <-ctx.Done():
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	w := NewWatcher("/nonexistent", 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	cancel()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// A second Run is a no-op.
	w.Run(context.Background())
}

func TestNewWatcher_DefaultInterval(t *testing.T) {
	t.Parallel()

	if w := NewWatcher("x", 0); w.interval != defaultPollInterval {
		t.Errorf("interval = %v, want %v", w.interval, defaultPollInterval)
	}
}
