//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHealthz(t *testing.T) {
	resp, err := http.Get(fmt.Sprintf("%s/healthz", baseURL()))
	if err != nil {
		t.Fatalf("health check request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}
}

func TestPing(t *testing.T) {
	resp, body := newClient(t).do(http.MethodGet, "/v1/ping", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ping: unexpected status %d: %s", resp.StatusCode, body)
	}
}
