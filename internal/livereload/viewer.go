// Package livereload fans file-change notifications out to connected browser
// tabs over persistent push channels and serves the browser-side snippet.
package livereload

import (
	"time"

	"github.com/previewd/previewd/internal/id"
)

// UpdateMessage is the entire wire protocol: a single word pushed to a viewer
// right before its channel is closed. The browser reloads and reconnects.
const UpdateMessage = "update"

// Viewer represents one open push channel, i.e. one browser tab currently
// displaying a served file.
type Viewer struct {
	ID          string
	ConnectedAt time.Time

	// Messages carries at most one update; the viewer is closed right after.
	Messages chan string

	// Done is closed when the hub is finished with this viewer.
	Done chan struct{}
}

func newViewer() *Viewer {
	return &Viewer{
		ID:          id.MustGenerate("view"),
		ConnectedAt: time.Now(),
		Messages:    make(chan string, 1),
		Done:        make(chan struct{}),
	}
}
