// Package builder runs an optional external build command when a watched
// file changes, before viewers are told to reload.
package builder

import (
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Runner executes the configured build command. previewd does not decide
// what to rebuild; it only runs the command and reports the outcome. A
// Runner with an empty command is disabled and does nothing.
type Runner struct {
	command string
	dir     string
	logger  *slog.Logger
}

// New creates a runner for command executed in dir.
func New(command, dir string, logger *slog.Logger) *Runner {
	return &Runner{
		command: command,
		dir:     dir,
		logger:  logger,
	}
}

// Enabled reports whether a build command is configured.
func (r *Runner) Enabled() bool {
	return r != nil && r.command != ""
}

// Run executes the build command with the changed path exposed as
// PREVIEWD_CHANGED. Build failures are logged, never returned: a broken
// build must not interrupt the watcher, the next change simply retries.
func (r *Runner) Run(changedPath string) {
	if !r.Enabled() {
		return
	}

	start := time.Now()
	cmd := exec.Command("sh", "-c", r.command)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), "PREVIEWD_CHANGED="+changedPath)

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Error("build command failed",
			"command", r.command, "error", err, "output", string(out))
		return
	}
	r.logger.Info("build command finished",
		"command", r.command, "duration", time.Since(start))
}
