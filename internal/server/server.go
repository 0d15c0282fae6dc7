// Package server exposes the configuration panel over a JSON HTTP API and
// a gRPC service.
package server

import (
	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/management"
)

// Server serves a management.Manager over HTTP and gRPC.
type Server struct {
	mgr    *management.Manager
	hub    *Hub
	logger zerolog.Logger
}

// New returns a server over mgr. hub streams events to SSE clients; the
// manager should publish to it. A nil hub gets a private one.
func New(mgr *management.Manager, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub()
	}
	return &Server{
		mgr:    mgr,
		hub:    hub,
		logger: log.WithComponent("server"),
	}
}
