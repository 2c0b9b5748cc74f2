package mdns

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "_previewd._tcp", ServiceType)
	assert.NotEmpty(t, ServerVersion)
}

func TestNewService(t *testing.T) {
	s := NewService(testLogger())
	require.NotNil(t, s)
	assert.Nil(t, s.server, "server should be nil before Start")
}

func TestStop_WithoutStart(t *testing.T) {
	s := NewService(testLogger())

	// Must be safe, repeatedly.
	s.Stop()
	s.Stop()
	assert.Nil(t, s.server)
}
