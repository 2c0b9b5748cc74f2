package livereload

import "bytes"

// Routes the serving layer mounts for live reload.
const (
	// EndpointPath is the push-channel endpoint browsers connect to.
	EndpointPath = "/__livereload"
	// ScriptPath serves the browser snippet.
	ScriptPath = "/__livereload.js"
)

// Script is the browser-side half of the protocol: open an EventSource
// against the push endpoint and reload the page when "update" arrives. The
// server closes the stream after sending, so a reconnect after reload always
// lands in a fresh viewer list.
const Script = `(() => {
  const path = encodeURIComponent(window.location.pathname);
  const source = new EventSource("` + EndpointPath + `?path=" + path);
  source.onmessage = (ev) => {
    if (ev.data === "` + UpdateMessage + `") {
      source.close();
      window.location.reload();
    }
  };
})();
`

var snippet = []byte(`<script src="` + ScriptPath + `"></script>`)

// InjectSnippet adds the reload script tag to an HTML document: before the
// closing body tag when one exists, appended at the end otherwise. The input
// is never modified.
func InjectSnippet(doc []byte) []byte {
	lower := bytes.ToLower(doc)
	out := make([]byte, 0, len(doc)+len(snippet))
	if i := bytes.LastIndex(lower, []byte("</body>")); i >= 0 {
		out = append(out, doc[:i]...)
		out = append(out, snippet...)
		out = append(out, doc[i:]...)
		return out
	}
	out = append(out, doc...)
	out = append(out, snippet...)
	return out
}
