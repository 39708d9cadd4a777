package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/sentiment"
)

// TestAnalyze tests decoding a backend response.
func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"text":"Great news!\nIt rained."`) {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"overall": {"sentiment": "positive", "score": 0.7},
			"paragraphs": [
				{"text": "Great news!", "sentiment": "positive", "score": 0.9,
				 "speechParams": {"rate": 1.1, "pitch": 1.1, "volume": 1.2}},
				{"text": "It rained.", "sentiment": "neutral", "score": 0.5}
			]
		}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL+"/api/analyze").Analyze(context.Background(), "Great news!\nIt rained.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Overall.Sentiment != sentiment.Positive || res.Len() != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if p := res.Paragraphs[0].SpeechParams; p == nil || p.Volume != 1.2 {
		t.Errorf("expected speech params, got %+v", p)
	}
	if res.Paragraphs[1].SpeechParams != nil {
		t.Error("expected missing speech params to stay nil")
	}
}

// TestAnalyzeErrors tests error reporting.
func TestAnalyzeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "No text provided"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "No text provided") {
		t.Errorf("expected backend error message, got %v", err)
	}

	if _, err := c.Analyze(context.Background(), "  \n"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

// TestAnalyzeUnreachable tests a connection failure.
func TestAnalyzeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewClient(url).Analyze(context.Background(), "hello"); err == nil {
		t.Error("expected an error for a closed server")
	}
}

// TestWaitReady tests the wake-up poll succeeding on a later attempt.
func TestWaitReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			t.Errorf("expected OPTIONS, got %s", r.Method)
		}
		if calls.Add(1) < 3 {
			// simulate a sleeping host by hanging up
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				_ = conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	var seen []int
	c := NewClient(srv.URL, WithWakeUp(5, 10*time.Millisecond))
	err := c.WaitReady(context.Background(), func(attempt, max int) {
		seen = append(seen, attempt)
		if max != 5 {
			t.Errorf("expected max 5, got %d", max)
		}
	})
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 attempts, got %v", seen)
	}
}

// TestWaitReadyAsleep tests giving up after the last attempt.
func TestWaitReadyAsleep(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithWakeUp(3, time.Millisecond))
	if err := c.WaitReady(context.Background(), nil); !errors.Is(err, ErrServerAsleep) {
		t.Errorf("expected ErrServerAsleep, got %v", err)
	}
}

// TestWaitReadyCancelled tests that cancellation stops the poll.
func TestWaitReadyCancelled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := NewClient(url, WithWakeUp(10, time.Second))
	if err := c.WaitReady(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

// TestLocal tests the in-process analyzer.
func TestLocal(t *testing.T) {
	res, err := NewLocal().Analyze(context.Background(), "I love this wonderful day!\nThis is terrible and awful.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Len() != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", res.Len())
	}
	if res.Paragraphs[0].Sentiment != sentiment.Positive || res.Paragraphs[1].Sentiment != sentiment.Negative {
		t.Errorf("unexpected sentiments %s %s", res.Paragraphs[0].Sentiment, res.Paragraphs[1].Sentiment)
	}
}
