package livereload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectSnippet_BeforeClosingBody(t *testing.T) {
	doc := []byte("<html><body><h1>hi</h1></body></html>")

	out := string(InjectSnippet(doc))

	assert.Contains(t, out, `<script src="`+ScriptPath+`"></script>`)
	assert.Less(t, strings.Index(out, "<script"), strings.Index(out, "</body>"))
	assert.Contains(t, out, "<h1>hi</h1>")
}

func TestInjectSnippet_UppercaseBodyTag(t *testing.T) {
	doc := []byte("<HTML><BODY>hi</BODY></HTML>")

	out := string(InjectSnippet(doc))

	// Injection point found case-insensitively, original casing preserved.
	assert.Contains(t, out, "</BODY>")
	assert.Less(t, strings.Index(out, "<script"), strings.Index(out, "</BODY>"))
}

func TestInjectSnippet_NoBodyTag(t *testing.T) {
	doc := []byte("<p>fragment</p>")

	out := string(InjectSnippet(doc))

	assert.True(t, strings.HasPrefix(out, "<p>fragment</p>"))
	assert.True(t, strings.HasSuffix(out, `<script src="`+ScriptPath+`"></script>`))
}

func TestInjectSnippet_DoesNotModifyInput(t *testing.T) {
	doc := []byte("<body></body>")
	orig := string(doc)

	InjectSnippet(doc)

	assert.Equal(t, orig, string(doc))
}

func TestScript_MentionsProtocol(t *testing.T) {
	assert.Contains(t, Script, EndpointPath)
	assert.Contains(t, Script, UpdateMessage)
	assert.Contains(t, Script, "location.reload()")
}
