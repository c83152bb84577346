// Package server provides the HTTP server for gesturebridge.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/gesturebridge/internal/app"
	"github.com/ayusman/gesturebridge/internal/server/api"
	"github.com/ayusman/gesturebridge/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// RecognizeRPS and RecognizeBurst limit uploads per client. Zero
	// disables the limit.
	RecognizeRPS   float64
	RecognizeBurst int
}

// Server represents the HTTP server for gesturebridge.
type Server struct {
	config      Config
	mux         *http.ServeMux
	start       time.Time
	hub         *ResultsHub
	unsubscribe func()
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

	if s.config.Store != nil {
		resultsHandler := api.NewResultsHandler(s.config.Store)
		s.mux.Handle("/api/results", resultsHandler)
		s.mux.Handle("/api/results/", resultsHandler)
	}

	if s.config.App != nil {
		recognizeHandler := api.NewRecognizeHandler(s.config.App)
		recognizeHandler.SetRateLimit(s.config.RecognizeRPS, s.config.RecognizeBurst)
		s.mux.Handle("/api/recognize", recognizeHandler)
		s.mux.HandleFunc("/api/pipeline", s.handlePipeline)

		s.hub = NewResultsHub()
		s.unsubscribe = s.config.App.Subscribe(s.hub.Publish)
		s.mux.Handle("/api/stream", s.hub)
	}

	s.mux.Handle("/metrics", newMetricsHandler(s.config.App, s.hub, s.config.Store))

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type pipelineResponse struct {
	Running bool      `json:"running"`
	Enabled bool      `json:"enabled"`
	Stats   app.Stats `json:"stats"`
}

func (s *Server) pipelineStatus() pipelineResponse {
	return pipelineResponse{
		Running: s.config.App.Running(),
		Enabled: s.config.App.IsEnabled(),
		Stats:   s.config.App.Stats(),
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.App != nil {
		response["pipeline"] = s.pipelineStatus()
		response["stream_clients"] = s.hub.Clients()
	}

	writeJSON(w, http.StatusOK, response)
}

// handlePipeline reports pipeline state on GET and toggles processing on PUT
// with a body of {"enabled": bool}.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s.config.App.SetEnabled(*req.Enabled)
		if *req.Enabled {
			log.Println("Recognition resumed")
		} else {
			log.Println("Recognition paused")
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.pipelineStatus())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Close detaches the server from the app and disconnects stream clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.hub != nil {
		s.hub.Close()
	}
}
