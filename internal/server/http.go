package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// HandlerOptions configures NewHTTPHandler.
type HandlerOptions struct {
	AuthToken string // empty disables auth
	Metrics   bool   // serve GET /metrics
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When AuthToken is non-empty, requests (except GET /v1/health and
// GET /metrics) must include a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(opts HandlerOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/configurations", s.handleListConfigurations)
	mux.HandleFunc("POST /v1/configurations", s.handleSaveConfiguration)
	mux.HandleFunc("POST /v1/configurations/import", s.handleImportConfiguration)
	mux.HandleFunc("DELETE /v1/configurations/{index}", s.handleRemoveConfiguration)
	mux.HandleFunc("POST /v1/configurations/{index}/apply", s.handleApplyConfiguration)
	mux.HandleFunc("GET /v1/configurations/{index}/export", s.handleExportConfiguration)
	mux.HandleFunc("POST /v1/configurations/{index}/export", s.handleGrantAndExport)
	mux.HandleFunc("GET /v1/output", s.handleOutput)
	mux.HandleFunc("GET /v1/form", s.handleGetForm)
	mux.HandleFunc("PUT /v1/form", s.handlePutForm)
	mux.HandleFunc("DELETE /v1/form", s.handleResetForm)
	mux.HandleFunc("GET /v1/permissions/downloads", s.handlePermissionStatus)
	mux.HandleFunc("POST /v1/permissions/downloads", s.handlePermissionGrant)
	mux.HandleFunc("DELETE /v1/permissions/downloads", s.handlePermissionRevoke)
	mux.HandleFunc("GET /v1/events", s.handleEventStream)
	if opts.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	var h http.Handler = mux
	h = AuthMiddleware(opts.AuthToken, h)
	h = MetricsMiddleware(mux, h)
	h = LoggingMiddleware(s.logger, h)
	h = RecoveryMiddleware(s.logger, h)
	return h
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps domain errors to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// pathIndex parses the {index} path value.
func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return index, true
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
