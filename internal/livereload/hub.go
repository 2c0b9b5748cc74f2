package livereload

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// Hub tracks which viewers are displaying which files and fans change
// notifications out to them. A Hub belongs to one serving session; nothing
// here is process-global, so several sessions can coexist in one process.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	viewers map[string][]*Viewer
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		viewers: make(map[string][]*Viewer),
	}
}

// Register adds a push channel for a browser tab displaying path. The same
// tab reloading registers a fresh viewer each time; no deduplication.
func (h *Hub) Register(path string) *Viewer {
	path = filepath.Clean(path)
	v := newViewer()

	h.mu.Lock()
	h.viewers[path] = append(h.viewers[path], v)
	total := len(h.viewers[path])
	h.mu.Unlock()

	h.logger.Debug("viewer registered",
		"viewer_id", v.ID, "path", path, "viewers_for_path", total)
	return v
}

// Unregister prunes a viewer whose connection dropped without a
// notification, so broken handles do not linger in the registry.
func (h *Hub) Unregister(path, viewerID string) {
	path = filepath.Clean(path)

	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.viewers[path]
	for i, v := range list {
		if v.ID == viewerID {
			h.viewers[path] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.viewers[path]) == 0 {
		delete(h.viewers, path)
	}
}

// ViewerCount returns the number of registered viewers across all paths.
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, list := range h.viewers {
		n += len(list)
	}
	return n
}

// FileChanged routes a change notification. A page document notifies only
// the viewers of that exact path. Any other extension notifies every viewer:
// stylesheets and scripts may be referenced by any number of pages, and the
// hub does not track references, so it over-notifies rather than
// under-notifies.
func (h *Hub) FileChanged(path string) {
	path = filepath.Clean(path)

	h.mu.Lock()
	var snapshot []*Viewer
	if IsPageFile(path) {
		snapshot = h.viewers[path]
		delete(h.viewers, path)
	} else {
		for p, list := range h.viewers {
			snapshot = append(snapshot, list...)
			delete(h.viewers, p)
		}
	}
	h.mu.Unlock()

	h.notifyAndClose(snapshot)
	if len(snapshot) > 0 {
		h.logger.Info("notified viewers", "path", path, "count", len(snapshot))
	}
}

// notifyAndClose pushes the update message to every viewer in the snapshot
// and closes it. The snapshot was removed from the registry before this runs,
// so viewers reconnecting after the reload always land in a fresh list. A
// viewer that cannot accept the message is still closed; one broken viewer
// never blocks its siblings.
func (h *Hub) notifyAndClose(viewers []*Viewer) {
	for _, v := range viewers {
		select {
		case v.Messages <- UpdateMessage:
		default:
		}
		close(v.Done)
	}
}

// CloseAll closes every open viewer without an update message. Used during
// session shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var snapshot []*Viewer
	for p, list := range h.viewers {
		snapshot = append(snapshot, list...)
		delete(h.viewers, p)
	}
	h.mu.Unlock()

	for _, v := range snapshot {
		close(v.Done)
	}
	if len(snapshot) > 0 {
		h.logger.Info("closed all viewers", "count", len(snapshot))
	}
}

// IsPageFile reports whether path is a page document. Page changes reload
// only that page's viewers; everything else is treated as a shared asset.
func IsPageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	default:
		return false
	}
}
