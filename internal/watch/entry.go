// Package watch implements polling-based file change detection for live reload.
package watch

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrPathNotFound is returned when a path registered for watching does not
// exist on disk at registration time.
var ErrPathNotFound = errors.New("watch: path not found")

// State is the tri-state outcome of examining a watched file.
type State int

const (
	// Unchanged means the modification time on disk matches the stored one.
	Unchanged State = iota
	// Changed means the file was modified after it was last examined.
	Changed
	// Deleted means the file no longer exists. Deletion is an expected
	// outcome of watching, not an error.
	Deleted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Entry pairs a watched path with the modification time observed the last
// time the path was examined. The stored time is never ahead of the file's
// actual modification time on disk.
type Entry struct {
	path    string
	modTime time.Time
}

// NewEntry creates an entry for path, recording its current modification
// time. Returns ErrPathNotFound when the path does not exist.
func NewEntry(path string) (*Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return &Entry{path: path, modTime: info.ModTime()}, nil
}

// Path returns the watched file path.
func (e *Entry) Path() string {
	return e.path
}

// Check compares the file on disk against the stored modification time.
// A missing file reports Deleted rather than an error.
func (e *Entry) Check() State {
	info, err := os.Stat(e.path)
	if err != nil {
		return Deleted
	}
	if info.ModTime().After(e.modTime) {
		return Changed
	}
	return Unchanged
}

// MarkUnchanged records the file's current modification time so the change
// just observed is not reported again. A no-op when the file has meanwhile
// been deleted; the next Check reports that.
func (e *Entry) MarkUnchanged() {
	info, err := os.Stat(e.path)
	if err != nil {
		return
	}
	e.modTime = info.ModTime()
}
