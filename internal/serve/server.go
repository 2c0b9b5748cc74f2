package serve

import (
	"fmt"
	"html"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/previewd/previewd/internal/livereload"
)

// Router builds the session's HTTP handler: the live-reload routes plus the
// static file catch-all.
func (s *Session) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}))

	pushHandler := livereload.NewHandler(s.hub, s.Resolve, s.logger.Logger)
	r.Get(livereload.EndpointPath, pushHandler.ServeHTTP)
	r.Get(livereload.ScriptPath, s.handleScript)

	// Everything else is the file tree.
	r.Handle("/*", http.HandlerFunc(s.handleFile))

	return r
}

// handleScript serves the browser-side reload snippet.
func (s *Session) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(livereload.Script))
}

// handleFile serves one file from the session root. Every file served
// becomes subject to change detection, so anything a browser has fetched
// triggers a reload when it changes on disk.
func (s *Session) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fsPath, err := s.Resolve(r.URL.Path)
	if err != nil {
		s.logger.Debug("not found", "path", r.URL.Path)
		s.writeNotFound(w, r.URL.Path)
		return
	}

	info, err := os.Stat(fsPath)
	if err != nil {
		s.writeNotFound(w, r.URL.Path)
		return
	}
	if info.IsDir() {
		s.writeListing(w, r.URL.Path, fsPath)
		return
	}

	data, err := os.ReadFile(fsPath)
	if err != nil {
		s.logger.Warn("failed to read file", "path", fsPath, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.watcher.WatchFile(fsPath)

	ctype := mime.TypeByExtension(filepath.Ext(fsPath))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if livereload.IsPageFile(fsPath) {
		data = livereload.InjectSnippet(data)
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		return
	}
	_, _ = w.Write(data)
}

// writeListing renders a directory listing for directories without an
// index.html. The listing carries the reload snippet too, so asset changes
// refresh it along with everything else.
func (s *Session) writeListing(w http.ResponseWriter, urlPath, fsPath string) {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	title := html.EscapeString(path.Clean("/" + urlPath))
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head><title>Index of %s</title></head>\n<body>\n", title)
	fmt.Fprintf(&b, "<h1>Index of %s</h1>\n<ul>\n", title)
	if title != "/" {
		fmt.Fprintf(&b, "<li><a href=%q>..</a></li>\n", path.Dir(title))
	}
	for _, entry := range entries {
		name := entry.Name()
		href := path.Join(title, name)
		if entry.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&b, "<li><a href=%q>%s</a></li>\n", href, html.EscapeString(name))
	}
	b.WriteString("</ul>\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(livereload.InjectSnippet([]byte(b.String())))
}

// writeNotFound renders a small 404 page.
func (s *Session) writeNotFound(w http.ResponseWriter, urlPath string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><body><h1>404 Not Found</h1><p>%s</p></body></html>\n",
		html.EscapeString(urlPath))
}
