package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	for _, tc := range []struct {
		name   string
		token  string
		method string
		path   string
		header string
		want   int
	}{
		{"NoHeader", "secret", http.MethodGet, "/v1/configurations", "", http.StatusUnauthorized},
		{"WrongToken", "secret", http.MethodGet, "/v1/configurations", "Bearer wrong", http.StatusUnauthorized},
		{"InvalidScheme", "secret", http.MethodGet, "/v1/configurations", "Basic secret", http.StatusUnauthorized},
		{"CorrectToken", "secret", http.MethodGet, "/v1/configurations", "Bearer secret", http.StatusOK},
		{"HealthExempt", "secret", http.MethodGet, "/v1/health", "", http.StatusOK},
		{"MetricsExempt", "secret", http.MethodGet, "/metrics", "", http.StatusOK},
		{"HealthPostNotExempt", "secret", http.MethodPost, "/v1/health", "", http.StatusUnauthorized},
		{"Disabled", "", http.MethodGet, "/v1/configurations", "", http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthMiddleware(tc.token, okHandler())
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d; body: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := LoggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusTeapot, "short and stout")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/output", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	id := rec.Header().Get(RequestIDHeader)
	if !strings.HasPrefix(id, "req-") {
		t.Errorf("request id = %q", id)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line: %v (%s)", err, buf.String())
	}
	if entry["request_id"] != id || entry["status"] != float64(http.StatusTeapot) || entry["path"] != "/v1/output" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestLoggingMiddleware_KeepsRequestID(t *testing.T) {
	handler := LoggingMiddleware(zerolog.Nop(), okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "upstream-1" {
		t.Errorf("request id = %q, want upstream-1", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(zerolog.Nop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /v1/things/{id}", okHandler())
	handler := MetricsMiddleware(mux, mux)

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "GET /v1/things/{id}", "200")
	before := testutil.ToFloat64(counter)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/things/7", nil))
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}

func TestStatusRecorder_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := recorderFor(rec)
	sr.Flush()
	if !rec.Flushed {
		t.Error("Flush should reach the underlying writer")
	}
	if recorderFor(sr) != sr {
		t.Error("recorderFor should reuse an existing recorder")
	}
}
