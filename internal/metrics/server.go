package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes SweepMetrics over a private HTTP mux. Starting it is
// entirely optional — cmd/sweep only does so when run with --metrics-listen
// or with an enabled metrics block in its config file.
type Server struct {
	registry   *prometheus.Registry
	metrics    *SweepMetrics
	httpServer *http.Server
	addr       net.Addr
}

// NewServer builds a Server with its own registry (never the global
// prometheus default), pre-registering the Go runtime collector alongside
// SweepMetrics.
func NewServer() *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	return &Server{
		registry: registry,
		metrics:  NewSweepMetrics(registry),
	}
}

// Metrics returns the SweepMetrics instance callers should record against.
func (s *Server) Metrics() *SweepMetrics {
	return s.metrics
}

// Start begins serving metrics at addr in the background. It returns once
// the listener is set up; serve errors after that point are not fatal to
// the sweep and are simply not surfaced (mirroring the ambient pattern of
// an optional, best-effort metrics endpoint).
func (s *Server) Start(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	mux.HandleFunc("/healthz", s.serveHealthz)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen on %s: %w", addr, err)
	}
	s.addr = ln.Addr()

	go s.httpServer.Serve(ln)
	return nil
}

// Addr returns the address the server actually bound to, resolved after a
// successful Start (useful when addr was given as "host:0").
func (s *Server) Addr() net.Addr {
	return s.addr
}

// serveHealthz reports liveness only — it does not attempt to distinguish a
// sweep that is merely slow from one that has stalled.
func (s *Server) serveHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Stop gracefully shuts the metrics server down, if it was started.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
}
