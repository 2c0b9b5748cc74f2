// Package providers contains the dependency injection providers for previewd.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/previewd/previewd/internal/builder"
	"github.com/previewd/previewd/internal/config"
	"github.com/previewd/previewd/internal/livereload"
	"github.com/previewd/previewd/internal/logger"
	"github.com/previewd/previewd/internal/watch"
)

// ProvideConfig loads the session configuration.
func ProvideConfig(do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}

// ProvideWatcher provides the configured change-detection backend. Polling
// is the default; the fsnotify backend is opt-in.
func ProvideWatcher(i do.Injector) (watch.Watcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Watch.Backend {
	case "notify":
		log.Info("using fsnotify watch backend")
		return watch.NewNotifyWatcher(log.Logger), nil
	default:
		log.Info("using polling watch backend", "interval", cfg.Watch.Interval)
		return watch.NewPollWatcher(log.Logger, cfg.Watch.Interval), nil
	}
}

// ProvideHub provides the session's viewer hub.
func ProvideHub(i do.Injector) (*livereload.Hub, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return livereload.NewHub(log.Logger), nil
}

// ProvideBuilder provides the optional build hook runner.
func ProvideBuilder(i do.Injector) (*builder.Runner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return builder.New(cfg.Build.Command, cfg.Build.Dir, log.Logger), nil
}
