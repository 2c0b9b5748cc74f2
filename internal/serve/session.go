// Package serve owns the HTTP layer of a preview session: static file
// serving, the live-reload routes, and the wiring between the watcher and
// the viewer hub.
package serve

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/previewd/previewd/internal/builder"
	"github.com/previewd/previewd/internal/config"
	"github.com/previewd/previewd/internal/id"
	"github.com/previewd/previewd/internal/livereload"
	"github.com/previewd/previewd/internal/logger"
	"github.com/previewd/previewd/internal/watch"
)

// Session owns everything one serving session needs: configuration, the
// watcher, the viewer hub, and the optional build runner. State lives here
// rather than in package globals so several sessions can coexist in one
// process.
type Session struct {
	ID      string
	cfg     *config.Config
	logger  *logger.Logger
	watcher watch.Watcher
	hub     *livereload.Hub
	build   *builder.Runner
	root    string
}

// NewSession wires a session together and registers the change callback on
// the watcher. The watcher is not started; call Start.
func NewSession(cfg *config.Config, log *logger.Logger, w watch.Watcher, hub *livereload.Hub, build *builder.Runner) *Session {
	s := &Session{
		ID:      id.MustGenerate("sess"),
		cfg:     cfg,
		logger:  log,
		watcher: w,
		hub:     hub,
		build:   build,
		root:    cfg.Serve.Root,
	}
	w.SetCallback(s.onFileChanged)
	return s
}

// Start begins change detection for this session.
func (s *Session) Start() {
	s.watcher.Start()
	s.logger.Info("session started",
		"session_id", s.ID, "root", s.root, "backend", s.cfg.Watch.Backend)
}

// Watcher exposes the session's watcher so the owning process can poll its
// status for the interrupted signal.
func (s *Session) Watcher() watch.Watcher {
	return s.watcher
}

// Shutdown stops the watcher and closes every open viewer. Implements
// do.Shutdownable so the container tears the session down in order.
func (s *Session) Shutdown() error {
	s.watcher.Stop()
	s.hub.CloseAll()
	s.logger.Info("session stopped", "session_id", s.ID)
	return nil
}

// onFileChanged is the watcher callback: run the build hook if configured,
// then fan the change out to viewers.
func (s *Session) onFileChanged(changed string) error {
	s.logger.Info("file changed", "path", changed)
	s.build.Run(changed)
	s.hub.FileChanged(changed)
	return nil
}

// Resolve maps a request path to a file under the session root, refusing to
// escape it. Directories resolve to their index.html when one exists.
func (s *Session) Resolve(requestPath string) (string, error) {
	// Rooting the path before cleaning neutralizes any "..".
	clean := path.Clean("/" + requestPath)
	fsPath := filepath.Join(s.root, filepath.FromSlash(clean))

	info, err := os.Stat(fsPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", requestPath, err)
	}
	if info.IsDir() {
		index := filepath.Join(fsPath, "index.html")
		if _, err := os.Stat(index); err == nil {
			return index, nil
		}
	}
	return fsPath, nil
}
