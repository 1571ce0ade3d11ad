package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	userstore "authgate/internal/auth/store/user"
)

// TestContext holds state between test steps. Each scenario gets a
// fresh in-process server so counters and lockout state never leak
// across scenarios.
type TestContext struct {
	Server           *httptest.Server
	Users            *userstore.InMemoryStore
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	AccessToken      string
	RefreshToken     string
}

// NewTestContext boots the service with in-memory stores and returns a
// context pointed at it.
func NewTestContext() *TestContext {
	server, users := newTestServer()
	return &TestContext{
		Server: server,
		Users:  users,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Reset tears the current server down and boots a fresh one, clearing
// all recorded state.
func (tc *TestContext) Reset() {
	tc.Close()
	tc.Server, tc.Users = newTestServer()
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.AccessToken = ""
	tc.RefreshToken = ""
}

// Close shuts the in-process server down.
func (tc *TestContext) Close() {
	if tc.Server != nil {
		tc.Server.Close()
	}
}

// POST makes a JSON POST request and stores the response.
func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.Server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return tc.do(req)
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.Server.URL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks whether the body contains text or a field of
// that name.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}
