// Package youtube implements the upstream collaborators that read channel
// data from the video provider and the DeArrow title service.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

const maxBodySize = 16 << 20

// ClientConfig holds configuration for the upstream HTTP client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:   "https://www.youtube.com",
		Timeout:   10 * time.Second,
		UserAgent: "Mozilla/5.0 (compatible; tubefeed/1.0)",
	}
}

// Client performs GET requests against one upstream base URL.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
}

// NewClient creates a client whose requests are bounded by cfg.Timeout.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

// get fetches baseURL+path. Transport failures are wrapped in
// repository.ErrNetwork; the status code is returned for the caller to judge.
func (c *Client) get(ctx context.Context, path, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %v", repository.ErrNetwork, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	// Keeps the page in the default locale so text fields parse predictably.
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: GET %s: %v", repository.ErrNetwork, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read %s: %v", repository.ErrNetwork, path, err)
	}

	return body, resp.StatusCode, nil
}

func statusError(path string, status int) error {
	return fmt.Errorf("%w: GET %s: unexpected status %d", repository.ErrNetwork, path, status)
}

// observe records the outcome of an upstream call.
func observe(source string, err error) {
	result := metrics.UpstreamSuccess
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrChannelNotFound):
		result = metrics.UpstreamNotFound
	case errors.Is(err, repository.ErrParse):
		result = metrics.UpstreamParseError
	default:
		result = metrics.UpstreamNetworkError
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(source, result).Inc()
}
