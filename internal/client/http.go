package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/model"
)

// HTTPClient implements Client against the pcm HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

type outputResponse struct {
	Output string `json:"output"`
}

type permissionResponse struct {
	Granted bool `json:"granted"`
}

func configurationPath(index int, suffix string) string {
	return "/v1/configurations/" + strconv.Itoa(index) + suffix
}

// --- Configurations ---

func (c *HTTPClient) List(ctx context.Context) (management.ListView, error) {
	var view management.ListView
	err := c.doJSON(ctx, http.MethodGet, "/v1/configurations", nil, &view)
	return view, err
}

func (c *HTTPClient) Save(ctx context.Context, name string) (management.ListView, error) {
	var view management.ListView
	err := c.doJSON(ctx, http.MethodPost, "/v1/configurations", map[string]string{"name": name}, &view)
	return view, err
}

func (c *HTTPClient) Remove(ctx context.Context, index int) (management.ListView, error) {
	var view management.ListView
	err := c.doJSON(ctx, http.MethodDelete, configurationPath(index, ""), nil, &view)
	return view, err
}

func (c *HTTPClient) Apply(ctx context.Context, index int) (string, error) {
	var out outputResponse
	err := c.doJSON(ctx, http.MethodPost, configurationPath(index, "/apply"), nil, &out)
	return out.Output, err
}

func (c *HTTPClient) Export(ctx context.Context, index int) (management.Artifact, error) {
	var art management.Artifact
	err := c.doJSON(ctx, http.MethodGet, configurationPath(index, "/export"), nil, &art)
	return art, err
}

func (c *HTTPClient) GrantAndExport(ctx context.Context, index int) (management.Artifact, error) {
	var art management.Artifact
	err := c.doJSON(ctx, http.MethodPost, configurationPath(index, "/export"), nil, &art)
	return art, err
}

func (c *HTTPClient) Import(ctx context.Context, data []byte) (management.ListView, error) {
	var view management.ListView
	err := c.doJSON(ctx, http.MethodPost, "/v1/configurations/import", map[string]string{"artifact": string(data)}, &view)
	return view, err
}

func (c *HTTPClient) Output(ctx context.Context) (string, error) {
	var out outputResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/output", nil, &out)
	return out.Output, err
}

// --- Form ---

func (c *HTTPClient) FormState(ctx context.Context) (json.RawMessage, error) {
	var state json.RawMessage
	err := c.doJSON(ctx, http.MethodGet, "/v1/form", nil, &state)
	return state, err
}

func (c *HTTPClient) LoadForm(ctx context.Context, data json.RawMessage) error {
	return c.doJSON(ctx, http.MethodPut, "/v1/form", data, nil)
}

func (c *HTTPClient) ResetForm(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/form", nil, nil)
}

// --- Download permission ---

func (c *HTTPClient) ExportEnabled(ctx context.Context) (bool, error) {
	var resp permissionResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/permissions/downloads", nil, &resp)
	return resp.Granted, err
}

func (c *HTTPClient) GrantExport(ctx context.Context) (bool, error) {
	var resp permissionResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/permissions/downloads", nil, &resp)
	return resp.Granted, err
}

func (c *HTTPClient) RevokeExport(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/permissions/downloads", nil, nil)
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server. It unwraps to the
// matching model error so callers can use errors.Is across transports.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusBadRequest:
		return model.ErrInvalidInput
	case http.StatusForbidden:
		return model.ErrPermissionDenied
	default:
		return nil
	}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
