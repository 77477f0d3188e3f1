// Package reload re-reads files that can change while the process runs:
// a polling Watcher reports modifications and a PatternsReloader swaps the
// redaction patterns of a live filter.
package reload

import (
	"context"
	"os"
	"sync"
	"time"
)

const defaultPollInterval = 5 * time.Second

// Event reports that the watched file changed.
type Event struct {
	Path    string
	ModTime time.Time
}

// Watcher polls one file and emits an Event whenever its modification time
// or size changes. Events are coalesced: a slow consumer sees at most one
// pending event.
type Watcher struct {
	path     string
	interval time.Duration
	events   chan Event

	once sync.Once
	done chan struct{}
}

// NewWatcher returns a watcher for path. A non-positive interval selects
// the default of five seconds.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		path:     path,
		interval: interval,
		events:   make(chan Event, 1),
		done:     make(chan struct{}),
	}
}

// Events returns the channel of change notifications.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run polls until ctx is cancelled. It may be called only once; further
// calls return immediately.
func (w *Watcher) Run(ctx context.Context) {
	started := false
	w.once.Do(func() { started = true })
	if !started {
		return
	}
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.stat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur := w.stat()
		if cur.missing || cur == last {
			continue
		}
		last = cur
		select {
		case w.events <- Event{Path: w.path, ModTime: cur.mod}:
		default:
		}
	}
}

// Done is closed once Run returns.
func (w *Watcher) Done() <-chan struct{} { return w.done }

type fileState struct {
	mod     time.Time
	size    int64
	missing bool
}

func (w *Watcher) stat() fileState {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{missing: true}
	}
	return fileState{mod: info.ModTime(), size: info.Size()}
}
