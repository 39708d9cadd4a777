package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/sentispeech/internal/sentiment"
)

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// TestAnalyzeEndpoints tests both analyze routes.
func TestAnalyzeEndpoints(t *testing.T) {
	s := New(Options{})

	for _, path := range []string{"/api/analyze", "/analyze"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, path, `{"text":"I love this!\n\nIt is a table."}`, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
			}

			var res sentiment.Result
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Len() != 2 {
				t.Fatalf("expected 2 paragraphs, got %d", res.Len())
			}
			p := res.Paragraphs[0]
			if p.Sentiment != sentiment.Positive || p.SpeechParams == nil {
				t.Errorf("unexpected first paragraph %+v", p)
			}
			if rec.Header().Get(requestIDHeader) == "" {
				t.Error("expected a request id header")
			}
		})
	}
}

// TestAnalyzeBadRequests tests invalid and empty bodies.
func TestAnalyzeBadRequests(t *testing.T) {
	s := New(Options{})

	tests := []struct {
		name, body, want string
	}{
		{"invalid json", `{"text":`, "Invalid request body"},
		{"empty text", `{"text":"   "}`, "No text provided"},
		{"missing text", `{}`, "No text provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/analyze", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var body map[string]string
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body["error"] != tt.want {
				t.Errorf("got error %q, want %q", body["error"], tt.want)
			}
		})
	}
}

// TestHealth tests the health check.
func TestHealth(t *testing.T) {
	rec := do(t, New(Options{}), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}
}

// TestCORSPreflight tests that browsers may call the API cross origin.
func TestCORSPreflight(t *testing.T) {
	rec := do(t, New(Options{}), http.MethodOptions, "/api/analyze", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

// TestRequestIDPropagates tests that a caller supplied id is echoed.
func TestRequestIDPropagates(t *testing.T) {
	rec := do(t, New(Options{}), http.MethodGet, "/health", "", map[string]string{requestIDHeader: "abc"})
	if got := rec.Header().Get(requestIDHeader); got != "abc" {
		t.Errorf("expected request id abc, got %q", got)
	}
}
