// Package web serves the live trainer state over HTTP so overlays,
// stream widgets, and remote displays can follow a practice session.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/0xlemi/eartrain/internal/trainer"
)

// State is the slice of the session the server reads.
type State interface {
	Snapshot() trainer.Snapshot
	Summary() trainer.Summary
}

// Server exposes read-only JSON endpoints for the current snapshot and
// the session statistics.
type Server struct {
	state State
	log   *slog.Logger
	http  *http.Server
	ln    net.Listener
}

// NewServer builds a server for the given listen address. The logger may
// be nil.
func NewServer(addr string, state State, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		state: state,
		log:   log.With("component", "web"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	// Overlays are typically served from another origin.
	return cors.Default().Handler(r)
}

// Start binds the listen address and begins serving. Bind failures are
// reported synchronously; later serve failures are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.http.Addr, err)
	}
	s.ln = ln
	s.log.Info("web interface listening", "addr", ln.Addr().String())

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("web server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address after Start, which matters when the
// configured address used port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.http.Addr
	}
	return s.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.state.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.state.Summary())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}
