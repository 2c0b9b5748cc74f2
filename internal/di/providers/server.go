package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/do/v2"

	"github.com/previewd/previewd/internal/builder"
	"github.com/previewd/previewd/internal/config"
	"github.com/previewd/previewd/internal/livereload"
	"github.com/previewd/previewd/internal/logger"
	"github.com/previewd/previewd/internal/mdns"
	"github.com/previewd/previewd/internal/serve"
	"github.com/previewd/previewd/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// ProvideSession wires the serving session together and starts change
// detection.
func ProvideSession(i do.Injector) (*serve.Session, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	watcher := do.MustInvoke[watch.Watcher](i)
	hub := do.MustInvoke[*livereload.Hub](i)
	build := do.MustInvoke[*builder.Runner](i)

	session := serve.NewSession(cfg, log, watcher, hub, build)
	session.Start()
	return session, nil
}

// HTTPServerHandle wraps http.Server with do.Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	hub *livereload.Hub
}

// Shutdown drains the server with a bounded timeout. Open push channels
// would otherwise block the drain, so viewers are closed first.
func (h *HTTPServerHandle) Shutdown() error {
	h.hub.CloseAll()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the listening HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	session := do.MustInvoke[*serve.Session](i)
	hub := do.MustInvoke[*livereload.Hub](i)

	srv := &http.Server{
		Addr:        net.JoinHostPort(cfg.Serve.Host, cfg.Serve.Port),
		Handler:     session.Router(),
		ReadTimeout: cfg.Serve.ReadTimeout,
		IdleTimeout: cfg.Serve.IdleTimeout,
		// No WriteTimeout: push channels stay open until a change arrives
		// and use per-write deadlines instead.
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	log.Info("preview server listening",
		"addr", "http://"+srv.Addr, "root", cfg.Serve.Root)
	return &HTTPServerHandle{Server: srv, hub: hub}, nil
}

// MDNSHandle wraps the mDNS service with do.Shutdownable.
type MDNSHandle struct {
	*mdns.Service
}

// Shutdown stops the advertisement.
func (h *MDNSHandle) Shutdown() error {
	h.Service.Stop()
	return nil
}

// ProvideMDNS provides local-network advertisement when enabled.
func ProvideMDNS(i do.Injector) (*MDNSHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := mdns.NewService(log.Logger)
	if cfg.Serve.AdvertiseMDNS {
		port, err := strconv.Atoi(cfg.Serve.Port)
		if err != nil {
			return nil, err
		}
		// Advertisement failures are non-fatal; the server still works.
		if err := svc.Start("previewd", port); err != nil {
			log.Warn("mDNS advertisement failed", "error", err)
		}
	}
	return &MDNSHandle{svc}, nil
}
