// Package di provides dependency injection configuration for previewd.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/previewd/previewd/internal/builder"
	"github.com/previewd/previewd/internal/config"
	"github.com/previewd/previewd/internal/di/providers"
	"github.com/previewd/previewd/internal/livereload"
	"github.com/previewd/previewd/internal/logger"
	"github.com/previewd/previewd/internal/serve"
	"github.com/previewd/previewd/internal/watch"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Live-reload engine
	do.Provide(injector, providers.ProvideWatcher)
	do.Provide(injector, providers.ProvideHub)
	do.Provide(injector, providers.ProvideBuilder)

	// Serving session
	do.Provide(injector, providers.ProvideSession)
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNS)

	return injector
}

// Bootstrap triggers initialization of all services in dependency order.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if _, err := do.Invoke[watch.Watcher](injector); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	if _, err := do.Invoke[*livereload.Hub](injector); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	if _, err := do.Invoke[*builder.Runner](injector); err != nil {
		return fmt.Errorf("builder: %w", err)
	}
	if _, err := do.Invoke[*serve.Session](injector); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	if _, err := do.Invoke[*providers.MDNSHandle](injector); err != nil {
		return fmt.Errorf("mdns: %w", err)
	}
	return nil
}
