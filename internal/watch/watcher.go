package watch

// Status describes the lifecycle state of a watcher.
type Status int

const (
	// StatusIdle means no callback is set and the loop is not running.
	StatusIdle Status = iota
	// StatusRunnable means a callback is set but the loop is not running.
	StatusRunnable
	// StatusRunning means the change-detection loop is active.
	StatusRunning
	// StatusInterrupted means the loop terminated because the callback
	// failed. An interrupted watcher is not restarted automatically; the
	// owning process is expected to shut the serving session down.
	StatusInterrupted
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunnable:
		return "runnable"
	case StatusRunning:
		return "running"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Callback is invoked once per detected change with the path that changed.
// A non-nil error terminates the watcher's loop and marks it interrupted.
type Callback func(path string) error

// Watcher is the capability contract shared by all watcher implementations.
// All methods are safe to call whether or not the watcher is running.
type Watcher interface {
	// Start begins change detection. A no-op when already running. Start
	// does not return until the loop has actually begun, so a Stop issued
	// immediately afterwards observes a consistent state.
	Start()

	// Stop terminates the loop and blocks until it has exited, preserving
	// the watched paths and callback for a later Start. Returns false when
	// the watcher was not running.
	Stop() bool

	// WatchFile registers a path for change detection. Registering a path
	// that does not exist, or one already being watched, is a silent no-op.
	WatchFile(path string)

	// SetCallback replaces the change callback. When the watcher is
	// running it is stopped, the callback swapped, and the watcher started
	// again, keeping the watched paths intact.
	SetCallback(fn Callback)

	// Status reports the watcher's lifecycle state.
	Status() Status
}
