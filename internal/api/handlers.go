package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"modulehost/internal/activation"
	"modulehost/internal/journal"
	"modulehost/internal/loader"
	"modulehost/internal/registry"
	"modulehost/internal/session"
	"modulehost/pkg/module"
)

// ModuleResponse describes a registered module
type ModuleResponse struct {
	registry.Descriptor
	Loaded bool `json:"loaded"`
	Active bool `json:"active"`
}

// ActiveResponse names the active module; both fields are empty when
// no module is active.
type ActiveResponse struct {
	Module string `json:"module"`
	Title  string `json:"title"`
}

// ActivateRequest is the request body for POST /api/active
type ActivateRequest struct {
	Module string `json:"module"`
}

// OperationRequest is the request body for POST /api/modules/{name}/operations
type OperationRequest struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Plugin string `json:"plugin"`
}

// OpenDocumentRequest is the request body for POST /api/document
type OpenDocumentRequest struct {
	Name string `json:"name"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) describe(d registry.Descriptor, active string) ModuleResponse {
	return ModuleResponse{
		Descriptor: d,
		Loaded:     s.controller.ModuleByName(d.Name) != nil,
		Active:     active != "" && active == d.Name,
	}
}

func (s *Server) activeName() string {
	if mod := s.controller.ActiveModule(); mod != nil {
		return mod.Name()
	}
	return ""
}

// handleListModules returns every registered module in declaration order
func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	active := s.activeName()
	descriptors := s.controller.Registry().List()
	response := make([]ModuleResponse, 0, len(descriptors))
	for _, d := range descriptors {
		response = append(response, s.describe(d, active))
	}
	writeJSON(w, http.StatusOK, response, s.logger)
}

// handleGetModule returns one module by internal name or title
func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, ok := s.controller.Registry().Lookup(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown module "+name)
		return
	}
	writeJSON(w, http.StatusOK, s.describe(d, s.activeName()), s.logger)
}

// handleLoadModule loads a module without activating it
func (s *Server) handleLoadModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	mod, err := s.controller.LoadModule(name, true)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	d, _ := s.controller.Registry().Lookup(mod.Name())
	writeJSON(w, http.StatusOK, s.describe(d, s.activeName()), s.logger)
}

// handleOperation asks a module to run an operation
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	op := module.OperationByID(req.ID)
	if req.Name != "" {
		op = module.OperationByName(req.Name, req.Plugin)
	}

	if err := s.controller.ActivateOperation(name, op); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// handleGetActive returns the active module
func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	var resp ActiveResponse
	if mod := s.controller.ActiveModule(); mod != nil {
		resp = ActiveResponse{Module: mod.Name(), Title: mod.Title()}
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

// handleSetActive activates a module, or deactivates when the name is empty
func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.controller.ActivateModule(req.Module); err != nil {
		s.writeControllerError(w, err)
		return
	}

	s.logger.Info("Module activation requested",
		zap.String("module", req.Module),
		zap.String("remote_addr", r.RemoteAddr))
	s.handleGetActive(w, r)
}

// handleVersions returns the version report
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Registry().VersionInfo(HostVersion), s.logger)
}

// handleGetDocument returns the open study
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	study := s.session.Study()
	if study == nil {
		s.writeError(w, http.StatusNotFound, session.ErrNoDocument.Error())
		return
	}
	writeJSON(w, http.StatusOK, study, s.logger)
}

// handleOpenDocument opens a new study
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	var req OpenDocumentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	study, err := s.session.OpenDocument(req.Name)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, study, s.logger)
}

// handleCloseDocument closes the open study
func (s *Server) handleCloseDocument(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	err := s.session.CloseDocument(force)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrNoDocument):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusConflict, err.Error())
	}
}

// handleDiagnostics returns the diagnostics surfaced so far
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Diagnostics(), s.logger)
}

// handleJournal returns recorded user events
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotImplemented, "journal is not readable")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	entries, err := s.journal.Entries(limit)
	if err != nil {
		s.logger.Error("Failed to read journal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries, s.logger)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message}, s.logger)
}

// writeControllerError maps controller and loader errors to HTTP statuses.
func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	var loadErr *loader.LoadError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, activation.ErrUnknownModule), errors.Is(err, activation.ErrNoModules):
		status = http.StatusNotFound
	case activation.IsRejected(err):
		status = http.StatusConflict
	case activation.IsDeclined(err), errors.Is(err, activation.ErrOperationDeclined):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &loadErr):
		status = http.StatusBadGateway
	}
	s.writeError(w, status, err.Error())
}
