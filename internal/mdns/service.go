// Package mdns advertises the preview server on the local network so other
// devices (phones, tablets) can find it without typing an address.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type for preview servers.
	ServiceType = "_previewd._tcp"

	// ServerVersion is advertised in TXT records.
	ServerVersion = "1.0.0"
)

// Service manages mDNS advertisement. Failures are non-fatal: multicast is
// frequently unavailable in containers and that must not stop the server.
type Service struct {
	logger *slog.Logger

	mu     sync.Mutex
	server *mdns.Server
}

// NewService creates an mDNS service that is not yet advertising.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// Start begins advertising on the given port. Safe to call again; an
// existing advertisement is replaced.
func (s *Service) Start(name string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "previewd"
	}

	info := []string{
		"version=" + ServerVersion,
		"name=" + name,
	}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}
	s.server = server

	s.logger.Info("advertising via mDNS", "type", ServiceType, "port", port)
	return nil
}

// Stop ends the advertisement. Safe to call when not started, and safe to
// call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return
	}
	if err := s.server.Shutdown(); err != nil {
		s.logger.Warn("mDNS shutdown error", "error", err)
	}
	s.server = nil
}
