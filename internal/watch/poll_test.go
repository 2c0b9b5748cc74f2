package watch

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusRunnable, "runnable"},
		{StatusRunning, "running"},
		{StatusInterrupted, "interrupted"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestNewPollWatcher_IntervalFloor(t *testing.T) {
	w := NewPollWatcher(testLogger(), time.Millisecond)
	assert.Equal(t, MinInterval, w.interval)

	w = NewPollWatcher(testLogger(), 200*time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, w.interval)
}

func TestPollWatcher_WatchFile_Idempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "hello")
	w := NewPollWatcher(testLogger(), MinInterval)

	w.WatchFile(path)
	w.WatchFile(path)

	assert.Equal(t, []string{path}, w.Watched())
}

func TestPollWatcher_WatchFile_MissingPath(t *testing.T) {
	w := NewPollWatcher(testLogger(), MinInterval)

	w.WatchFile(filepath.Join(t.TempDir(), "nope.txt"))

	assert.Empty(t, w.Watched())
}

func TestPollWatcher_StopWhenNotRunning(t *testing.T) {
	w := NewPollWatcher(testLogger(), MinInterval)
	assert.False(t, w.Stop())
	assert.Equal(t, StatusIdle, w.Status())
}

func TestPollWatcher_StartStop(t *testing.T) {
	w := NewPollWatcher(testLogger(), MinInterval)
	w.SetCallback(func(string) error { return nil })
	assert.Equal(t, StatusRunnable, w.Status())

	w.Start()
	assert.Equal(t, StatusRunning, w.Status())

	// Second Start is a no-op.
	w.Start()
	assert.Equal(t, StatusRunning, w.Status())

	assert.True(t, w.Stop())
	assert.Equal(t, StatusRunnable, w.Status())
	assert.False(t, w.Stop())
}

func TestPollWatcher_ChangeTriggersCallbackOnce(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "hello")

	var mu sync.Mutex
	var recorded []string

	w := NewPollWatcher(testLogger(), MinInterval)
	w.SetCallback(func(p string) error {
		mu.Lock()
		recorded = append(recorded, p)
		mu.Unlock()
		return nil
	})
	w.WatchFile(path)
	w.Start()
	defer w.Stop()

	touch(t, path)

	require.True(t, waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recorded) > 0
	}), "callback never fired")

	// Let several more sweeps run; the acknowledged change must not fire again.
	time.Sleep(4 * MinInterval)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{path}, recorded)
}

func TestPollWatcher_DeletionPrunesWithoutCallback(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "hello")

	var calls atomic.Int32
	w := NewPollWatcher(testLogger(), MinInterval)
	w.SetCallback(func(string) error {
		calls.Add(1)
		return nil
	})
	w.WatchFile(path)

	require.NoError(t, os.Remove(path))
	w.Start()
	defer w.Stop()

	require.True(t, waitFor(t, time.Second, func() bool {
		return len(w.Watched()) == 0
	}), "deleted entry never pruned")
	assert.Equal(t, int32(0), calls.Load())
}

func TestPollWatcher_CallbackFailureInterrupts(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "hello")

	w := NewPollWatcher(testLogger(), MinInterval)
	w.SetCallback(func(string) error {
		return errors.New("boom")
	})
	w.WatchFile(path)
	w.Start()

	touch(t, path)

	require.True(t, waitFor(t, time.Second, func() bool {
		return w.Status() == StatusInterrupted
	}), "watcher never interrupted")

	// The loop already exited on its own.
	assert.False(t, w.Stop())
}

func TestPollWatcher_NoOverlappingLoops(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "hello")

	var active, maxActive atomic.Int32
	w := NewPollWatcher(testLogger(), MinInterval)
	w.SetCallback(func(string) error {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	})
	w.WatchFile(path)

	// Rapid stop/start cycles must never leave two loops alive.
	for i := 0; i < 5; i++ {
		w.Start()
		touch(t, path)
		time.Sleep(2 * MinInterval)
		w.Stop()
	}

	assert.LessOrEqual(t, maxActive.Load(), int32(1))
	assert.NotEqual(t, StatusRunning, w.Status())
}

func TestPollWatcher_SetCallbackHotSwap(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")
	b := writeFile(t, dir, "b.txt", "b")

	var firstCalls, secondCalls atomic.Int32

	w := NewPollWatcher(testLogger(), MinInterval)
	w.SetCallback(func(string) error {
		firstCalls.Add(1)
		return nil
	})
	w.WatchFile(a)
	w.WatchFile(b)
	w.Start()
	defer w.Stop()

	w.SetCallback(func(string) error {
		secondCalls.Add(1)
		return nil
	})

	// Watched files survive the swap and the watcher keeps running.
	assert.Equal(t, []string{a, b}, w.Watched())
	assert.Equal(t, StatusRunning, w.Status())

	touch(t, a)

	require.True(t, waitFor(t, time.Second, func() bool {
		return secondCalls.Load() == 1
	}), "swapped callback never fired")
	assert.Equal(t, int32(0), firstCalls.Load())
}

func TestPollWatcher_NoCallbackSkipsChecks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "hello")

	w := NewPollWatcher(testLogger(), MinInterval)
	w.WatchFile(path)
	w.Start()
	defer w.Stop()

	touch(t, path)
	time.Sleep(3 * MinInterval)

	// Without a callback the sweep never examines entries, so the change is
	// still pending once a callback arrives.
	var calls atomic.Int32
	w.SetCallback(func(string) error {
		calls.Add(1)
		return nil
	})

	require.True(t, waitFor(t, time.Second, func() bool {
		return calls.Load() == 1
	}), "pending change not delivered after callback was set")
}

func TestPollWatcher_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.txt", "v1")

	var mu sync.Mutex
	var recorded []string

	w := NewPollWatcher(testLogger(), 50*time.Millisecond)
	w.SetCallback(func(p string) error {
		mu.Lock()
		recorded = append(recorded, p)
		mu.Unlock()
		return nil
	})
	w.WatchFile(path)
	w.Start()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	touch(t, path)

	require.True(t, waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recorded) == 1
	}), "change never recorded")

	mu.Lock()
	assert.Equal(t, []string{path}, recorded)
	mu.Unlock()

	assert.True(t, w.Stop())
	assert.Equal(t, StatusRunnable, w.Status())
}
