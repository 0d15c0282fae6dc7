package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/alfredjeanlab/policyconf/internal/permission"
)

// maxFormBody bounds PUT /v1/form bodies.
const maxFormBody = 4 << 20

type permissionResponse struct {
	Permission string `json:"permission"`
	Granted    bool   `json:"granted"`
}

// handleGetForm handles GET /v1/form.
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	data, err := s.mgr.FormState(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(data))
}

// handlePutForm handles PUT /v1/form.
func (s *Server) handlePutForm(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) > maxFormBody {
		writeError(w, http.StatusRequestEntityTooLarge, "form state too large")
		return
	}
	if err := s.mgr.LoadForm(r.Context(), body); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleGetForm(w, r)
}

// handleResetForm handles DELETE /v1/form.
func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.ResetForm(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleGetForm(w, r)
}

// handlePermissionStatus handles GET /v1/permissions/downloads.
func (s *Server) handlePermissionStatus(w http.ResponseWriter, r *http.Request) {
	held, err := s.mgr.ExportEnabled(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionResponse{Permission: permission.Downloads, Granted: held})
}

// handlePermissionGrant handles POST /v1/permissions/downloads.
func (s *Server) handlePermissionGrant(w http.ResponseWriter, r *http.Request) {
	granted, err := s.mgr.GrantExport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionResponse{Permission: permission.Downloads, Granted: granted})
}

// handlePermissionRevoke handles DELETE /v1/permissions/downloads.
func (s *Server) handlePermissionRevoke(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.RevokeExport(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionResponse{Permission: permission.Downloads, Granted: false})
}
