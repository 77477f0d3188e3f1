package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const backupSuffixLayout = "2006-01-02"

// DailyWriter is an io.WriteCloser that rolls its file over at midnight.
// The closed-out file is renamed to "<path>.<YYYY-MM-DD>" (the day it
// covers) and at most backups such files are kept.
type DailyWriter struct {
	path    string
	backups int
	utc     bool
	now     func() time.Time

	mu   sync.Mutex
	file *os.File
	next time.Time // next rollover instant
	day  time.Time // midnight of the day the open file covers
}

// NewDailyWriter opens (or creates) path, creating its directory.
func NewDailyWriter(path string, backups int, utc bool) (*DailyWriter, error) {
	return newDailyWriter(path, backups, utc, time.Now)
}

func newDailyWriter(path string, backups int, utc bool, now func() time.Time) (*DailyWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log file: create directory %s: %w", dir, err)
		}
	}
	w := &DailyWriter{path: path, backups: backups, utc: utc, now: now}

	// An existing file covers the day it was last written, so a process
	// restarted the next morning still rolls yesterday's lines out.
	start := w.now()
	if info, err := os.Stat(path); err == nil {
		start = info.ModTime()
	}
	if err := w.open(start); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *DailyWriter) midnight(t time.Time) time.Time {
	if w.utc {
		t = t.UTC()
	} else {
		t = t.Local()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (w *DailyWriter) open(start time.Time) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("log file: open %s: %w", w.path, err)
	}
	w.file = f
	w.day = w.midnight(start)
	w.next = w.day.AddDate(0, 0, 1)
	return nil
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if now := w.now(); !now.Before(w.next) {
		if err := w.rotate(now); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

func (w *DailyWriter) rotate(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("log file: close: %w", err)
	}
	backup := w.path + "." + w.day.Format(backupSuffixLayout)
	if err := os.Rename(w.path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("log file: rotate: %w", err)
	}
	if err := w.prune(); err != nil {
		return err
	}
	return w.open(now)
}

// prune removes the oldest backups beyond the retention count.
func (w *DailyWriter) prune() error {
	if w.backups <= 0 {
		return nil
	}
	matches, err := filepath.Glob(w.path + ".*")
	if err != nil {
		return fmt.Errorf("log file: list backups: %w", err)
	}

	prefix := w.path + "."
	var backups []string
	for _, m := range matches {
		if _, err := time.Parse(backupSuffixLayout, strings.TrimPrefix(m, prefix)); err == nil {
			backups = append(backups, m)
		}
	}
	if len(backups) <= w.backups {
		return nil
	}

	// The date suffix sorts lexically in chronological order.
	slices.Sort(backups)
	for _, old := range backups[:len(backups)-w.backups] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("log file: remove %s: %w", old, err)
		}
	}
	return nil
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
