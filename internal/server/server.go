// Package server provides the HTTP surface of autoframe: health, controller
// state and control, the capture journal, the preview stream and the guidance
// websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/autoframe/internal/frame"
	"github.com/ayusman/autoframe/internal/orchestrator"
	"github.com/ayusman/autoframe/internal/server/api"
	"github.com/ayusman/autoframe/internal/store"
)

// Controller is the part of the capture controller the server drives.
type Controller interface {
	Snapshot() orchestrator.Snapshot
	SetEnabled(enabled bool)
	Reset()
}

// Config holds the server configuration. Every field is optional; routes whose
// backing component is missing are not registered.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller Controller
	Preview    *frame.Holder
	Guidance   *GuidanceHub
	// StreamFPS is the MJPEG frame rate. Zero means 15.
	StreamFPS float64
}

// Server represents the HTTP server for autoframe.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.HandleFunc("/api/control", s.handleControl)
	}

	if s.config.Store != nil {
		captures := api.NewCaptureHandler(s.config.Store)
		s.mux.Handle("/api/captures", captures)
		s.mux.Handle("/api/captures/", captures)

		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview, s.config.StreamFPS))
	}

	if s.config.Guidance != nil {
		s.mux.Handle("/api/guidance", s.config.Guidance)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	writeJSON(w, http.StatusOK, response)
}

// handleState handles GET /api/state and returns the controller snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Controller.Snapshot())
}

type controlRequest struct {
	Action string `json:"action"`
}

// handleControl handles POST /api/control with an enable, disable or reset action.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	ctl := s.config.Controller
	switch req.Action {
	case "enable":
		ctl.SetEnabled(true)
	case "disable":
		ctl.SetEnabled(false)
	case "reset":
		ctl.Reset()
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown action"})
		return
	}
	writeJSON(w, http.StatusAccepted, ctl.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Run serves on addr until ctx is cancelled. Request contexts derive from ctx so
// long-lived streams end with it.
func (s *Server) Run(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
