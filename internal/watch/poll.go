package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// MinInterval is the floor for the polling interval. Intervals below it are
// raised to it.
const MinInterval = 50 * time.Millisecond

// PollWatcher is the default Watcher implementation. It detects changes by
// sweeping an explicit list of files on a fixed interval and comparing
// modification times. Polling is deliberate: OS event APIs over-trigger
// (opens, metadata touches) and are awkward to reason about in tests,
// while a fixed-interval sweep is portable and deterministic.
type PollWatcher struct {
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	callback Callback
	entries  []*Entry
	status   Status
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Watcher = (*PollWatcher)(nil)

// NewPollWatcher creates a watcher sweeping every interval. The watcher
// starts idle: no files, no callback, loop not running.
func NewPollWatcher(logger *slog.Logger, interval time.Duration) *PollWatcher {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &PollWatcher{
		logger:   logger,
		interval: interval,
		status:   StatusIdle,
	}
}

// Status reports the watcher's lifecycle state.
func (w *PollWatcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// WatchFile registers a path for change detection. Missing paths and
// duplicates are silent no-ops.
func (w *PollWatcher) WatchFile(path string) {
	path = filepath.Clean(path)

	entry, err := NewEntry(path)
	if err != nil {
		w.logger.Debug("not watching missing path", "path", path)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.entries {
		if e.Path() == path {
			return
		}
	}
	w.entries = append(w.entries, entry)
	w.logger.Debug("watching file", "path", path, "count", len(w.entries))
}

// Watched returns the currently watched paths in registration order.
func (w *PollWatcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, len(w.entries))
	for i, e := range w.entries {
		paths[i] = e.Path()
	}
	return paths
}

// SetCallback replaces the change callback, hot-swapping it when the loop is
// running: the loop is stopped, the callback replaced, and the loop started
// again with the watched paths intact.
func (w *PollWatcher) SetCallback(fn Callback) {
	wasRunning := w.Stop()

	w.mu.Lock()
	w.callback = fn
	if fn != nil {
		w.status = StatusRunnable
	} else {
		w.status = StatusIdle
	}
	w.mu.Unlock()

	if wasRunning {
		w.Start()
	}
}

// Start spawns the polling loop. A no-op when already running. Start blocks
// until the loop has begun, so Stop issued immediately afterwards cannot
// observe a half-started loop.
func (w *PollWatcher) Start() {
	w.mu.Lock()
	if w.status == StatusRunning {
		w.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	started := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.status = StatusRunning
	w.mu.Unlock()

	go w.loop(ctx, started, done)
	<-started
}

// Stop cancels the polling loop and blocks until it has exited. Returns
// false when the watcher was not running. Safe to call while another Stop is
// already in flight.
func (w *PollWatcher) Stop() bool {
	w.mu.Lock()
	if w.status != StatusRunning || w.cancel == nil {
		w.mu.Unlock()
		return false
	}
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
	return true
}

// loop is the polling loop body. It signals entry on started and closes done
// on exit. Cancellation ends the loop normally; a callback failure flips the
// status to StatusInterrupted.
func (w *PollWatcher) loop(ctx context.Context, started, done chan struct{}) {
	defer close(done)
	close(started)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStatus(w.restStatus())
			return
		case <-ticker.C:
			if err := w.sweep(); err != nil {
				w.logger.Error("watch callback failed, interrupting watcher", "error", err)
				w.setStatus(StatusInterrupted)
				return
			}
		}
	}
}

// sweep examines every watched entry once. Changed entries are marked
// unchanged before the callback runs, so one change triggers at most one
// invocation. Deleted entries are collected during iteration and removed
// afterwards, never mid-iteration.
func (w *PollWatcher) sweep() error {
	w.mu.Lock()
	cb := w.callback
	entries := make([]*Entry, len(w.entries))
	copy(entries, w.entries)
	w.mu.Unlock()

	// Without a callback the loop stays alive but does not touch the disk.
	if cb == nil {
		return nil
	}

	var deleted map[string]bool
	for _, e := range entries {
		switch e.Check() {
		case Changed:
			e.MarkUnchanged()
			w.logger.Debug("file changed", "path", e.Path())
			if err := cb(e.Path()); err != nil {
				return fmt.Errorf("callback for %s: %w", e.Path(), err)
			}
		case Deleted:
			if deleted == nil {
				deleted = make(map[string]bool)
			}
			deleted[e.Path()] = true
		case Unchanged:
		}
	}

	if len(deleted) > 0 {
		w.mu.Lock()
		kept := w.entries[:0]
		for _, e := range w.entries {
			if deleted[e.Path()] {
				w.logger.Debug("watched file deleted", "path", e.Path())
				continue
			}
			kept = append(kept, e)
		}
		w.entries = kept
		w.mu.Unlock()
	}

	return nil
}

func (w *PollWatcher) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// restStatus is the status the watcher returns to when its loop ends
// normally.
func (w *PollWatcher) restStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.callback != nil {
		return StatusRunnable
	}
	return StatusIdle
}
