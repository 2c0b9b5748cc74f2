package serve

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/previewd/previewd/internal/livereload"
	"github.com/previewd/previewd/internal/watch"
)

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouter_ServesFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "style.css", "body { color: red }")

	s := testSession(t, root)
	rec := get(t, s.Router(), "/style.css")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "body { color: red }", rec.Body.String())
}

func TestRouter_ServedFileIsWatched(t *testing.T) {
	root := t.TempDir()
	page := writeFile(t, root, "page.html", "<html><body>hi</body></html>")

	s := testSession(t, root)
	get(t, s.Router(), "/page.html")

	pw, ok := s.watcher.(*watch.PollWatcher)
	require.True(t, ok)
	assert.Equal(t, []string{page}, pw.Watched())
}

func TestRouter_InjectsSnippetIntoHTML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "page.html", "<html><body>hi</body></html>")

	s := testSession(t, root)
	rec := get(t, s.Router(), "/page.html")

	assert.Contains(t, rec.Body.String(), livereload.ScriptPath)
}

func TestRouter_DoesNotInjectIntoAssets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "console.log('</body>')")

	s := testSession(t, root)
	rec := get(t, s.Router(), "/app.js")

	assert.NotContains(t, rec.Body.String(), livereload.ScriptPath)
}

func TestRouter_DirectoryIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/index.html", "<html><body>docs</body></html>")

	s := testSession(t, root)
	rec := get(t, s.Router(), "/docs/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docs")
}

func TestRouter_DirectoryListing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "assets/a.css", "")
	writeFile(t, root, "assets/b.js", "")

	s := testSession(t, root)
	rec := get(t, s.Router(), "/assets/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "a.css")
	assert.Contains(t, body, "b.js")
	assert.Contains(t, body, "Index of /assets")
	// Listings reload too.
	assert.Contains(t, body, livereload.ScriptPath)
}

func TestRouter_NotFound(t *testing.T) {
	s := testSession(t, t.TempDir())
	rec := get(t, s.Router(), "/missing.html")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "page.html", "<html></html>")

	s := testSession(t, root)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/page.html", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_HeadRequest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "page.html", "<html><body>hi</body></html>")

	s := testSession(t, root)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/page.html", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
}

func TestRouter_ServesReloadScript(t *testing.T) {
	s := testSession(t, t.TempDir())
	rec := get(t, s.Router(), livereload.ScriptPath)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), "EventSource")
}

func TestRouter_LivereloadEndpointUnknownPath(t *testing.T) {
	s := testSession(t, t.TempDir())
	rec := get(t, s.Router(), livereload.EndpointPath+"?path=/missing.html")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
