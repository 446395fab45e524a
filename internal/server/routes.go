package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Imports (job submission and status polling)
	mux.HandleFunc("/api/imports", s.handleImportsRoute)  // GET (list), POST (submit)
	mux.HandleFunc("/api/imports/", s.handleImportRoutes) // GET /{id}, POST /{id}/cancel

	// API routes - Materials (imported catalog, read only)
	mux.HandleFunc("/api/materials", s.app.MaterialHandler.ListHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleImportsRoute dispatches the collection endpoint by method
func (s *Server) handleImportsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.ImportHandler.SubmitHandler(w, r)
	case http.MethodGet:
		s.app.ImportHandler.ListHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleImportRoutes routes /api/imports/{id} and subpaths
func (s *Server) handleImportRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/imports/{id}/cancel
	if strings.HasSuffix(path, "/cancel") {
		s.app.ImportHandler.CancelHandler(w, r)
		return
	}

	// GET /api/imports/{id}
	s.app.ImportHandler.GetHandler(w, r)
}
