package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", "")
}

const listBody = `{
	"configurations": [
		{"id": "cfg-1", "name": "Work", "time": "2024-05-01T12:00:00Z", "configuration": {"fields": {}}}
	],
	"export_enabled": true
}`

func TestHTTPClient_List(t *testing.T) {
	h := &testHandler{responseBody: listBody}
	c := newTestClient(t, h)

	view, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/configurations" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if len(view.Configurations) != 1 || view.Configurations[0].Name != "Work" || !view.ExportEnabled {
		t.Errorf("view = %+v", view)
	}
}

func TestHTTPClient_Save(t *testing.T) {
	h := &testHandler{statusCode: http.StatusCreated, responseBody: listBody}
	c := newTestClient(t, h)

	if _, err := c.Save(context.Background(), "Work"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/configurations" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("Content-Type = %q", h.contentType)
	}
	if h.body != `{"name":"Work"}` {
		t.Errorf("body = %s", h.body)
	}
}

func TestHTTPClient_Paths(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name   string
		call   func(c *HTTPClient) error
		method string
		path   string
		resp   string
	}{
		{"Remove", func(c *HTTPClient) error { _, err := c.Remove(ctx, 2); return err },
			http.MethodDelete, "/v1/configurations/2", listBody},
		{"Apply", func(c *HTTPClient) error { _, err := c.Apply(ctx, 0); return err },
			http.MethodPost, "/v1/configurations/0/apply", `{"output":"{}"}`},
		{"Export", func(c *HTTPClient) error { _, err := c.Export(ctx, 1); return err },
			http.MethodGet, "/v1/configurations/1/export", `{"filename":"f","location":"l"}`},
		{"GrantAndExport", func(c *HTTPClient) error { _, err := c.GrantAndExport(ctx, 1); return err },
			http.MethodPost, "/v1/configurations/1/export", `{"filename":"f","location":"l"}`},
		{"Output", func(c *HTTPClient) error { _, err := c.Output(ctx); return err },
			http.MethodGet, "/v1/output", `{"output":""}`},
		{"FormState", func(c *HTTPClient) error { _, err := c.FormState(ctx); return err },
			http.MethodGet, "/v1/form", `{"fields":{}}`},
		{"ResetForm", func(c *HTTPClient) error { return c.ResetForm(ctx) },
			http.MethodDelete, "/v1/form", `{"fields":{}}`},
		{"ExportEnabled", func(c *HTTPClient) error { _, err := c.ExportEnabled(ctx); return err },
			http.MethodGet, "/v1/permissions/downloads", `{"granted":false}`},
		{"GrantExport", func(c *HTTPClient) error { _, err := c.GrantExport(ctx); return err },
			http.MethodPost, "/v1/permissions/downloads", `{"granted":true}`},
		{"RevokeExport", func(c *HTTPClient) error { return c.RevokeExport(ctx) },
			http.MethodDelete, "/v1/permissions/downloads", `{"granted":false}`},
		{"Health", func(c *HTTPClient) error { _, err := c.Health(ctx); return err },
			http.MethodGet, "/v1/health", `{"status":"ok"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{responseBody: tc.resp}
			c := newTestClient(t, h)
			if err := tc.call(c); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if h.method != tc.method || h.path != tc.path {
				t.Errorf("request = %s %s, want %s %s", h.method, h.path, tc.method, tc.path)
			}
		})
	}
}

func TestHTTPClient_Import(t *testing.T) {
	h := &testHandler{statusCode: http.StatusCreated, responseBody: listBody}
	c := newTestClient(t, h)

	if _, err := c.Import(context.Background(), []byte("eyJ9")); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if h.path != "/v1/configurations/import" || h.body != `{"artifact":"eyJ9"}` {
		t.Errorf("request = %s %s", h.path, h.body)
	}
}

func TestHTTPClient_LoadForm(t *testing.T) {
	h := &testHandler{responseBody: `{"fields":{}}`}
	c := newTestClient(t, h)

	state := json.RawMessage(`{"fields": {"DisableTelemetry": {"checked": true}}}`)
	if err := c.LoadForm(context.Background(), state); err != nil {
		t.Fatalf("LoadForm: %v", err)
	}
	if h.method != http.MethodPut || h.body != `{"fields":{"DisableTelemetry":{"checked":true}}}` {
		t.Errorf("request = %s %s", h.method, h.body)
	}
}

func TestHTTPClient_Apply(t *testing.T) {
	h := &testHandler{responseBody: `{"output":"{\n  \"policies\": {}\n}"}`}
	c := newTestClient(t, h)

	out, err := c.Apply(context.Background(), 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out != "{\n  \"policies\": {}\n}" {
		t.Errorf("output = %q", out)
	}
}

func TestHTTPClient_Token(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "s3cret")
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", h.auth)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	for _, tc := range []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{http.StatusNotFound, `{"error":"configuration 4 not found"}`, model.ErrNotFound, "configuration 4 not found"},
		{http.StatusBadRequest, `{"error":"bad name"}`, model.ErrInvalidInput, "bad name"},
		{http.StatusForbidden, `{"error":"denied"}`, model.ErrPermissionDenied, "denied"},
		{http.StatusInternalServerError, "boom\n", nil, "boom"},
	} {
		h := &testHandler{statusCode: tc.status, responseBody: tc.body}
		c := newTestClient(t, h)

		_, err := c.Remove(context.Background(), 4)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected *APIError, got %v", tc.status, err)
		}
		if apiErr.StatusCode != tc.status || apiErr.Message != tc.msg {
			t.Errorf("APIError = %+v", apiErr)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("status %d: errors.Is(%v) = false", tc.status, tc.want)
		}
		if tc.want == nil && (errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidInput)) {
			t.Errorf("status %d should not map to a model error", tc.status)
		}
	}
}

func TestHTTPClient_NoContent(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNoContent}
	c := newTestClient(t, h)
	if err := c.RevokeExport(context.Background()); err != nil {
		t.Fatalf("RevokeExport: %v", err)
	}
}

func TestHTTPClient_BadJSON(t *testing.T) {
	h := &testHandler{responseBody: `{not json`}
	c := newTestClient(t, h)
	if _, err := c.List(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
