package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"modulehost/internal/activation"
	"modulehost/internal/journal"
	"modulehost/internal/registry"
	"modulehost/internal/session"
)

// HostVersion is reported first by GET /api/versions.
var HostVersion = registry.VersionEntry{Name: "HOST", Version: "dev"}

// Server provides HTTP API endpoints for the module host
type Server struct {
	controller *activation.Controller
	session    *session.Session
	journal    journal.Reader
	logger     *zap.Logger
	router     chi.Router
	server     *http.Server
}

// NewServer creates a new API server. journal may be nil when the journal
// cannot be read back.
func NewServer(
	controller *activation.Controller,
	sess *session.Session,
	jr journal.Reader,
	logger *zap.Logger,
	port int,
) *Server {
	s := &Server{
		controller: controller,
		session:    sess,
		journal:    jr,
		logger:     logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleSitemap)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", s.handleListModules)
		r.Get("/modules/{name}", s.handleGetModule)
		r.Post("/modules/{name}/load", s.handleLoadModule)
		r.Post("/modules/{name}/operations", s.handleOperation)
		r.Get("/active", s.handleGetActive)
		r.Post("/active", s.handleSetActive)
		r.Get("/versions", s.handleVersions)
		r.Get("/document", s.handleGetDocument)
		r.Post("/document", s.handleOpenDocument)
		r.Delete("/document", s.handleCloseDocument)
		r.Get("/diagnostics", s.handleDiagnostics)
		r.Get("/journal", s.handleJournal)
		r.Get("/events", s.handleEvents)
	})
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap - lists all available API endpoints"},
	{Path: "/health", Method: "GET", Description: "Health check endpoint - returns {\"status\": \"ok\"}"},
	{Path: "/api/modules", Method: "GET", Description: "List registered modules with status, loaded and active flags"},
	{Path: "/api/modules/{name}", Method: "GET", Description: "Get one module by internal name or title"},
	{Path: "/api/modules/{name}/load", Method: "POST", Description: "Load a module without activating it"},
	{Path: "/api/modules/{name}/operations", Method: "POST", Description: "Run an operation: {\"id\": 3} or {\"name\": \"...\", \"plugin\": \"...\"}"},
	{Path: "/api/active", Method: "GET", Description: "Get the active module"},
	{Path: "/api/active", Method: "POST", Description: "Activate a module: {\"module\": \"<name>\"}, empty name deactivates"},
	{Path: "/api/versions", Method: "GET", Description: "Version report of the host and every registered module"},
	{Path: "/api/document", Method: "GET", Description: "Get the open study"},
	{Path: "/api/document", Method: "POST", Description: "Open a study: {\"name\": \"...\"}"},
	{Path: "/api/document", Method: "DELETE", Description: "Close the open study (?force=true skips the pending operations check)"},
	{Path: "/api/diagnostics", Method: "GET", Description: "Diagnostics surfaced to the user"},
	{Path: "/api/journal", Method: "GET", Description: "User event journal (?limit=N)"},
	{Path: "/api/events", Method: "GET", Description: "WebSocket stream of module lifecycle events"},
}

// handleSitemap returns a list of all available API endpoints
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	preferHTML := strings.Contains(r.Header.Get("Accept"), "text/html")

	if preferHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Module Host API</title>
    <style>
        body { font-family: monospace; margin: 40px; background: #1e1e1e; color: #d4d4d4; }
        h1 { color: #4ec9b0; }
        .endpoint { background: #2d2d2d; padding: 15px; margin: 10px 0; border-left: 3px solid #007acc; }
        .method { color: #4ec9b0; font-weight: bold; }
        .path { color: #ce9178; }
        .description { color: #9cdcfe; margin-top: 5px; }
    </style>
</head>
<body>
    <h1>Module Host API</h1>
`)
		for _, ep := range endpoints {
			fmt.Fprintf(w, `    <div class="endpoint">
        <div><span class="method">%s</span> <span class="path">%s</span></div>
        <div class="description">%s</div>
    </div>
`, ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprintf(w, "</body>\n</html>\n")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Module Host API\n")
		fmt.Fprintf(w, "===============\n\n")
		for _, ep := range endpoints {
			fmt.Fprintf(w, "  %-7s %-32s %s\n", ep.Method, ep.Path, ep.Description)
		}
		fmt.Fprintf(w, "\nExample:\n\n")
		fmt.Fprintf(w, "  curl -X POST -d '{\"module\":\"GEOM\"}' http://localhost:8080/api/active\n")
	}

	s.logger.Debug("Sitemap request served",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("html_format", preferHTML))
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
