// Package analysis talks to the sentiment analysis backend.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"golang.org/x/time/rate"
)

const (
	// DefaultAttempts and DefaultInterval bound the wake-up poll. Free hosting
	// tiers take up to a minute to resume a sleeping backend.
	DefaultAttempts = 10
	DefaultInterval = 5 * time.Second

	maxErr = 4096
)

var (
	// ErrServerAsleep is returned by WaitReady when the backend never answered.
	ErrServerAsleep = errors.New("analysis server did not wake up")

	// ErrEmptyText is returned when there is nothing to analyze.
	ErrEmptyText = errors.New("please enter some text to analyze")
)

// Analyzer scores a document.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*sentiment.Result, error)
}

// Client calls a remote /api/analyze endpoint.
type Client struct {
	endpoint string
	c        *http.Client
	attempts int
	interval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.c = c }
}

// WithWakeUp changes how often and how patiently WaitReady polls.
func WithWakeUp(attempts int, interval time.Duration) Option {
	return func(cl *Client) {
		cl.attempts = attempts
		cl.interval = interval
	}
}

// NewClient creates a client for endpoint, e.g.
// "https://example.app/api/analyze".
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		c:        &http.Client{Timeout: 30 * time.Second},
		attempts: DefaultAttempts,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeReq struct {
	Text string `json:"text"`
}

type errorResp struct {
	Error string `json:"error"`
}

// Analyze posts text and decodes the result.
func (c *Client) Analyze(ctx context.Context, text string) (*sentiment.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	body, err := sonic.Marshal(analyzeReq{Text: text})
	if err != nil {
		return nil, fmt.Errorf("analyze marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach analysis server: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		var e errorResp
		if sonic.Unmarshal(b, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("analyze %s: %s", resp.Status, e.Error)
		}
		return nil, fmt.Errorf("analyze %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analyze read: %w", err)
	}
	var out sentiment.Result
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("analyze decode: %w", err)
	}
	if out.Paragraphs == nil {
		out.Paragraphs = []sentiment.Paragraph{}
	}
	return &out, nil
}

// WaitReady polls the endpoint with OPTIONS requests until it answers.
// Any HTTP response counts as awake. progress, when set, is called before
// every attempt.
func (c *Client) WaitReady(ctx context.Context, progress func(attempt, max int)) error {
	limiter := rate.NewLimiter(rate.Every(c.interval), 1)

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			// the next attempt would land past the deadline
			<-ctx.Done()
			return ctx.Err()
		}
		if progress != nil {
			progress(attempt, c.attempts)
		}

		if c.ping(ctx) {
			log.Debug("analysis server ready", "attempt", attempt)
			return nil
		}
		log.Debug("analysis server not ready", "attempt", attempt, "of", c.attempts)
	}
	return ErrServerAsleep
}

func (c *Client) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, c.endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErr))
	_ = resp.Body.Close()
	return true
}

// Local runs the VADER analyzer in process.
type Local struct {
	a *sentiment.Analyzer
}

// NewLocal creates an in-process analyzer.
func NewLocal() *Local {
	return &Local{a: sentiment.NewAnalyzer()}
}

// Analyze implements Analyzer.
func (l *Local) Analyze(ctx context.Context, text string) (*sentiment.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.a.Analyze(text), nil
}

var (
	_ Analyzer = (*Client)(nil)
	_ Analyzer = (*Local)(nil)
)
