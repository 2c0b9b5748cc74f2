package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// NotifyWatcher implements Watcher on OS file events via fsnotify. It watches
// the parent directory of each registered file and reacts only to events for
// registered paths. It exists for very large trees where per-file polling
// gets expensive; PollWatcher remains the default backend.
type NotifyWatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	callback Callback
	paths    map[string]bool
	status   Status
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Watcher = (*NotifyWatcher)(nil)

// NewNotifyWatcher creates an event-based watcher. The watcher starts idle.
func NewNotifyWatcher(logger *slog.Logger) *NotifyWatcher {
	return &NotifyWatcher{
		logger: logger,
		paths:  make(map[string]bool),
		status: StatusIdle,
	}
}

// Status reports the watcher's lifecycle state.
func (w *NotifyWatcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// WatchFile registers a path for change detection. Missing paths and
// duplicates are silent no-ops.
func (w *NotifyWatcher) WatchFile(path string) {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		w.logger.Debug("not watching missing path", "path", path)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paths[path] {
		return
	}
	w.paths[path] = true

	// When the loop is running, cover the new file's directory right away.
	if w.fsw != nil {
		if err := w.fsw.Add(filepath.Dir(path)); err != nil {
			w.logger.Warn("failed to watch directory", "dir", filepath.Dir(path), "error", err)
		}
	}
}

// SetCallback replaces the change callback, restarting the event loop when
// it is running so the swap never races a delivery in flight.
func (w *NotifyWatcher) SetCallback(fn Callback) {
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

// Start begins delivering file events. A no-op when already running. A
// failure to set up the OS watcher interrupts the watcher immediately, the
// same signal a failing callback produces.
func (w *NotifyWatcher) Start() {
	w.mu.Lock()
	if w.status == StatusRunning {
		w.mu.Unlock()
		return
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create fsnotify watcher", "error", err)
		w.status = StatusInterrupted
		w.mu.Unlock()
		return
	}

	// fsnotify watches directories; register each file's parent once.
	dirs := make(map[string]bool)
	for path := range w.paths {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	started := make(chan struct{})
	w.fsw = fsw
	w.cancel = cancel
	w.done = done
	w.status = StatusRunning
	w.mu.Unlock()

	go w.loop(ctx, fsw, started, done)
	<-started
}

// Stop terminates the event loop and blocks until it has exited. Returns
// false when the watcher was not running.
func (w *NotifyWatcher) Stop() bool {
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

func (w *NotifyWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher, started, done chan struct{}) {
	defer close(done)
	defer func() {
		w.mu.Lock()
		w.fsw = nil
		w.mu.Unlock()
		fsw.Close()
	}()
	close(started)

	for {
		select {
		case <-ctx.Done():
			w.setStatus(w.restStatus())
			return

		case event, ok := <-fsw.Events:
			if !ok {
				w.setStatus(w.restStatus())
				return
			}
			if err := w.handleEvent(event); err != nil {
				w.logger.Error("watch callback failed, interrupting watcher", "error", err)
				w.setStatus(StatusInterrupted)
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				w.setStatus(w.restStatus())
				return
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// handleEvent reacts to one fsnotify event. Only registered paths matter;
// directory noise around them is ignored.
func (w *NotifyWatcher) handleEvent(event fsnotify.Event) error {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	registered := w.paths[path]
	cb := w.callback
	if registered && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		delete(w.paths, path)
		registered = false
	}
	w.mu.Unlock()

	if !registered || cb == nil {
		return nil
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return nil
	}

	w.logger.Debug("file changed", "path", path)
	if err := cb(path); err != nil {
		return fmt.Errorf("callback for %s: %w", path, err)
	}
	return nil
}

func (w *NotifyWatcher) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

func (w *NotifyWatcher) restStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.callback != nil {
		return StatusRunnable
	}
	return StatusIdle
}
