// Package server provides the HTTP server hosting a SOAP endpoint.
//
// The server exposes:
//
// # SOAP Endpoint
//
// POST {basePath} - Receives SOAP requests encoded as XML, MTOM, SwA or Fast
// Infoset and answers with the encoding negotiated for the exchange.
//
// # Health
//
//   - GET /health - Liveness probe
//   - GET /ready  - Readiness probe, fails once shutdown has begun
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirosfoundation/go-mtom/internal/config"
	"github.com/sirosfoundation/go-mtom/pkg/transport"
)

// Server is the SOAP HTTP server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	httpSrv  *http.Server
	handler  *transport.Handler
	draining atomic.Bool
}

// New creates a new server dispatching SOAP requests to endpoint. When TLS
// is enabled the key pair is loaded here.
func New(cfg *config.Config, endpoint transport.Endpoint, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	https, err := cfg.ServerTLS()
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	s := &Server{
		config:  cfg,
		logger:  logger,
		handler: transport.NewHandler(cfg.HandlerOptions(logger), endpoint),
	}

	// Set up HTTP routes
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}
	if cfg.Server.TLS.Enabled {
		s.httpSrv.TLSConfig = https.ServerTLSConfig()
	}

	return s, nil
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins listening on the specified address
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info("starting server", "addr", addr, "tls", s.config.Server.TLS.Enabled)
	if s.config.Server.TLS.Enabled {
		// certificates are already in TLSConfig
		return s.httpSrv.ListenAndServeTLS("", "")
	}
	return s.httpSrv.ListenAndServe()
}

// Serve accepts plain HTTP connections on l
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("starting server", "addr", l.Addr().String(), "tls", false)
	return s.httpSrv.Serve(l)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	basePath := strings.TrimSuffix(s.config.Server.BasePath, "/")
	if basePath == "" {
		basePath = "/"
	}

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	// SOAP endpoint; the handler answers other methods with 405
	mux.Handle(basePath, s.handler)
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		s.jsonError(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.jsonResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// Helper functions

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, message string, status int) {
	s.jsonResponse(w, map[string]string{"error": message}, status)
}
