// Package sheets is the only component that talks to the external
// publisher. Each named tab of the published workbook is fetchable as
// delimited text; most candidate names are expected to miss, so a miss is
// a normal outcome here, not an error condition.
package sheets

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"availability-portal/internal/config"
	"availability-portal/internal/ratelimit"
)

// ErrTabUnavailable marks a candidate tab that could not be fetched:
// 404, unrelated content, network failure. Callers advance to the next
// candidate; it is never surfaced past the resolver.
var ErrTabUnavailable = errors.New("tab unavailable")

// Fetcher is the single upstream dependency of the core. Tests substitute
// a table of tabName -> rawText.
type Fetcher interface {
	FetchTab(ctx context.Context, tab string) (string, error)
}

// Client fetches published tabs over HTTP.
type Client struct {
	client         *http.Client
	tabURLTemplate string
	indexURL       string
	userAgent      string
	maxRetries     int
	retryDelay     time.Duration
	limiter        *ratelimit.ProbeLimiter
	breaker        *CircuitBreaker
}

// NewClient creates a Client from upstream settings.
func NewClient(cfg config.UpstreamConfig, limiter *ratelimit.ProbeLimiter) *Client {
	return &Client{
		client:         &http.Client{Timeout: cfg.GetTimeout()},
		tabURLTemplate: cfg.TabURLTemplate,
		indexURL:       cfg.IndexURL,
		userAgent:      cfg.UserAgent,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.GetRetryDelay(),
		limiter:        limiter,
		breaker:        NewCircuitBreaker(1 * time.Hour),
	}
}

// Breaker exposes the circuit breaker for status reporting.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// FetchTab downloads one tab as raw delimited text. 4xx responses and
// exhausted retries return ErrTabUnavailable.
func (c *Client) FetchTab(ctx context.Context, tab string) (string, error) {
	if !c.breaker.CanProceed() {
		return "", fmt.Errorf("%w: circuit breaker open", ErrTabUnavailable)
	}

	tabURL := fmt.Sprintf(c.tabURLTemplate, url.QueryEscape(tab))

	if c.limiter != nil {
		c.limiter.Acquire()
		defer c.limiter.Release()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.retryDelay
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTabUnavailable, ctx.Err())
			}
		}

		body, status, err := c.doRequest(ctx, tabURL)
		if err != nil {
			lastErr = err
			c.breaker.RecordFailure(0)
			continue
		}

		switch {
		case status == http.StatusOK:
			c.breaker.RecordSuccess()
			return body, nil
		case status >= 500 || status == http.StatusTooManyRequests:
			// Server-side trouble: count against the breaker and retry.
			c.breaker.RecordFailure(status)
			lastErr = fmt.Errorf("status %d", status)
		case status == http.StatusForbidden:
			c.breaker.RecordFailure(status)
			return "", fmt.Errorf("%w: status %d", ErrTabUnavailable, status)
		default:
			// 4xx means this candidate name simply does not exist.
			// Expected for most probes; not a breaker failure.
			return "", fmt.Errorf("%w: status %d", ErrTabUnavailable, status)
		}
	}

	return "", fmt.Errorf("%w: %v", ErrTabUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fetchURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/csv,text/plain,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", resp.StatusCode, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}

	return string(body), resp.StatusCode, nil
}

// LooksLikeErrorPage reports whether a fetched body is an HTML placeholder
// rather than tab data. The publisher serves these with status 200.
func LooksLikeErrorPage(body string) bool {
	trimmed := strings.TrimSpace(body)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		log.Printf("[Sheets] Received HTML placeholder instead of tab data")
		return true
	}
	return false
}
