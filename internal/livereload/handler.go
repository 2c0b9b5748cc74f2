package livereload

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Resolver maps a request path (as the browser sees it) to the filesystem
// path the watcher reports changes against. It fails for paths that do not
// resolve to a served file.
type Resolver func(requestPath string) (string, error)

// Handler upgrades GET requests into the persistent push channel viewers
// listen on, using server-sent events. The protocol is a single "update"
// data line followed by the server closing the stream.
type Handler struct {
	hub     *Hub
	resolve Resolver
	logger  *slog.Logger
}

// NewHandler creates the push-channel handler for one session's hub.
func NewHandler(hub *Hub, resolve Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		resolve: resolve,
		logger:  logger,
	}
}

// ServeHTTP handles GET /__livereload?path=<page>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page := r.URL.Query().Get("path")
	if page == "" {
		page = "/"
	}
	fsPath, err := h.resolve(page)
	if err != nil {
		http.Error(w, "Unknown path", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	viewer := h.hub.Register(fsPath)
	log := h.logger.With(slog.String("viewer_id", viewer.ID), slog.String("path", fsPath))
	log.Debug("viewer connected")

	select {
	case msg := <-viewer.Messages:
		h.send(w, rc, msg)
		log.Debug("viewer notified")

	case <-viewer.Done:
		// The hub may have buffered the update just before closing.
		select {
		case msg := <-viewer.Messages:
			h.send(w, rc, msg)
			log.Debug("viewer notified")
		default:
			log.Debug("viewer closed")
		}

	case <-r.Context().Done():
		// Browser went away without a notification; prune the handle.
		h.hub.Unregister(fsPath, viewer.ID)
		log.Debug("viewer disconnected")
	}
}

// send writes one SSE data line. Transport errors are swallowed: the stream
// is closing either way, and a broken viewer is not this handler's problem.
func (h *Handler) send(w http.ResponseWriter, rc *http.ResponseController, msg string) {
	if err := rc.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		h.logger.Debug("failed to set write deadline", "error", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
		return
	}
	_ = rc.Flush()
}
