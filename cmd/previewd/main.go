// Package main provides the entry point for the previewd server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/previewd/previewd/internal/di"
	"github.com/previewd/previewd/internal/logger"
	"github.com/previewd/previewd/internal/serve"
	"github.com/previewd/previewd/internal/watch"
)

// statusPollInterval is how often the watcher status is checked for the
// interrupted signal.
const statusPollInterval = 250 * time.Millisecond

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start previewd: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	session := do.MustInvoke[*serve.Session](injector)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	exitCode := 0

wait:
	for {
		select {
		case sig := <-quit:
			log.Info("received signal, shutting down", "signal", sig.String())
			break wait

		case <-ticker.C:
			// An interrupted watcher means live reload is dead. A half-alive
			// server that serves files but never reloads again is worse than
			// exiting, so treat it like a shutdown request.
			if session.Watcher().Status() == watch.StatusInterrupted {
				log.Error("watcher interrupted, shutting down")
				exitCode = 1
				break wait
			}
		}
	}

	// The container tears services down in reverse dependency order.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
		exitCode = 1
	}

	log.Info("previewd stopped")
	os.Exit(exitCode)
}
