package server

import (
	"net/http"
	"strings"

	"github.com/jellydator/validation"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

type saveRequest struct {
	Name string `json:"name"`
}

// Validate checks the name as the manager will store it, trimmed.
func (r saveRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, model.MaxNameLength)),
	)
}

type importRequest struct {
	Artifact string `json:"artifact"` // contents of a .policy file
}

func (r importRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Artifact, validation.Required),
	)
}

type outputResponse struct {
	Output string `json:"output"`
}

// handleListConfigurations handles GET /v1/configurations.
func (s *Server) handleListConfigurations(w http.ResponseWriter, r *http.Request) {
	view, err := s.mgr.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSaveConfiguration handles POST /v1/configurations.
func (s *Server) handleSaveConfiguration(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.mgr.Save(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleImportConfiguration handles POST /v1/configurations/import.
func (s *Server) handleImportConfiguration(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.mgr.Import(r.Context(), []byte(req.Artifact))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleRemoveConfiguration handles DELETE /v1/configurations/{index}.
func (s *Server) handleRemoveConfiguration(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	view, err := s.mgr.Remove(r.Context(), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleApplyConfiguration handles POST /v1/configurations/{index}/apply.
func (s *Server) handleApplyConfiguration(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	text, err := s.mgr.Apply(r.Context(), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outputResponse{Output: text})
}

// handleExportConfiguration handles GET /v1/configurations/{index}/export.
// It never prompts: without the permission it answers 403.
func (s *Server) handleExportConfiguration(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	art, err := s.mgr.Export(r.Context(), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// handleGrantAndExport handles POST /v1/configurations/{index}/export.
func (s *Server) handleGrantAndExport(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	art, err := s.mgr.GrantAndExport(r.Context(), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// handleOutput handles GET /v1/output.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	text, err := s.mgr.Output(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outputResponse{Output: text})
}
