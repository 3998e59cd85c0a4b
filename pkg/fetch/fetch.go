// Package fetch retrieves article pages over plain HTTP with realistic
// browser headers. Rendering-heavy listing pages are handled by pkg/discover
// instead; article bodies are served statically.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phuslu/log"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client fetches pages with retries on transient status codes.
type Client struct {
	HTTP        *http.Client
	UserAgent   string
	MaxBodySize int64
	Retries     int
	RetryDelay  time.Duration
	Logger      log.Logger
}

// NewClient returns a client with the defaults the crawler uses: 30s
// request timeout, 10 MB body cap, 3 attempts with a short delay.
func NewClient() *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: 30 * time.Second},
		UserAgent:   defaultUserAgent,
		MaxBodySize: 10 * 1024 * 1024,
		Retries:     3,
		RetryDelay:  2 * time.Second,
	}
}

// Get fetches url and returns the body as a string. Responses with status
// 5xx or 429 are retried up to Retries times; other non-200 statuses fail
// immediately.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	attempts := c.Retries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.RetryDelay):
			}
			c.Logger.Debug().Str("url", url).Int("attempt", attempt).Msg("retrying fetch")
		}

		body, retryable, err := c.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("fetch: giving up on %s after %d attempts: %w", url, attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (body string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("fetch: %s returned status %d", url, resp.StatusCode)
	default:
		return "", false, fmt.Errorf("fetch: %s returned status %d", url, resp.StatusCode)
	}

	limit := c.MaxBodySize
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", true, err
	}
	if int64(len(data)) > limit {
		return "", false, fmt.Errorf("fetch: %s body exceeds %d byte limit", url, limit)
	}
	return string(data), false, nil
}
