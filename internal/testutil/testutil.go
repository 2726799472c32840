// Package testutil holds small helpers shared by handler and service
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func NewTestRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func NewTestRequestWithJSON(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func ParseJSONResponse(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return parsed
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d (body: %s)", want, rr.Code, rr.Body.String())
	}
}

func AssertJSONContains(t *testing.T, body []byte, key string, want any) {
	t.Helper()
	parsed := ParseJSONResponse(t, body)
	got, ok := parsed[key]
	if !ok {
		t.Fatalf("expected key %q in response %s", key, body)
	}
	if got != want {
		t.Fatalf("expected %q=%v, got %v", key, want, got)
	}
}
