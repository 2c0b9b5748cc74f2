package builder

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_Disabled(t *testing.T) {
	r := New("", t.TempDir(), testLogger())
	assert.False(t, r.Enabled())

	// Must be a no-op, not an error.
	r.Run("/some/file.html")
}

func TestRunner_NilReceiver(t *testing.T) {
	var r *Runner
	assert.False(t, r.Enabled())
	assert.NotPanics(t, func() { r.Run("/some/file.html") })
}

func TestRunner_RunsCommand(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "built.txt")

	r := New(`echo "$PREVIEWD_CHANGED" > built.txt`, dir, testLogger())
	require.True(t, r.Enabled())

	r.Run("/site/page.html")

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "/site/page.html\n", string(data))
}

func TestRunner_FailureDoesNotPanic(t *testing.T) {
	r := New("exit 3", t.TempDir(), testLogger())

	assert.NotPanics(t, func() { r.Run("/site/page.html") })
}
