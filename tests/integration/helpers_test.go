//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:3000")
}

// sessionView mirrors the fields of the session view the suite asserts on.
type sessionView struct {
	State            string `json:"state"`
	SessionID        string `json:"session_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Index            int    `json:"index"`
	Total            int    `json:"total"`
	Question         *struct {
		ID      string   `json:"id"`
		Prompt  string   `json:"question"`
		Options []string `json:"options"`
	} `json:"question"`
	Score *int `json:"score"`
}

type apiClient struct {
	t      *testing.T
	base   string
	token  string
	client *http.Client
}

func newClient(t *testing.T) *apiClient {
	return &apiClient{
		t:      t,
		base:   baseURL(),
		token:  os.Getenv("INTEGRATION_TOKEN"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, fmt.Sprintf("%s%s", c.base, path), reader)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return resp, data
}

// view performs the call and decodes a session view, failing on unexpected status.
func (c *apiClient) view(method, path string, body any, wantStatus int) sessionView {
	c.t.Helper()

	resp, data := c.do(method, path, body)
	if resp.StatusCode != wantStatus {
		c.t.Fatalf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, data)
	}
	var v sessionView
	if err := json.Unmarshal(data, &v); err != nil {
		c.t.Fatalf("decode view: %v", err)
	}
	return v
}

// reset drives the shared session back to home from whatever state a previous run left.
func (c *apiClient) reset() {
	c.t.Helper()

	v := c.view(http.MethodGet, "/v1/session", nil, http.StatusOK)
	switch v.State {
	case "playing":
		for v.State == "playing" {
			v = c.view(http.MethodPost, "/v1/session/next", nil, http.StatusOK)
		}
		c.view(http.MethodPost, "/v1/session/home", nil, http.StatusOK)
	case "result", "loading", "error", "category_select":
		c.view(http.MethodPost, "/v1/session/home", nil, http.StatusOK)
	}
}
