package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"katom-scraper/internal/types"
)

// HTTPClient provides HTTP functionality with rate limiting and retries.
// It backs the browserless fetch mode for pages that render server-side.
type HTTPClient struct {
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *time.Ticker
}

// NewHTTPClient creates a new HTTP client with the given configuration.
// A non-positive RequestDelay disables rate limiting.
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: config.PageLoadTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	h := &HTTPClient{
		client: client,
		config: config,
		logger: logger,
	}
	if config.RequestDelay > 0 {
		h.limiter = time.NewTicker(config.RequestDelay)
	}
	return h
}

// Get performs a single rate-limited GET request. A 404 response maps to
// ErrPageNotFound; any other failure is returned as-is. Retrying is the
// caller's policy, one request per call.
func (h *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	if h.limiter != nil {
		select {
		case <-h.limiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		h.logger.Debugf("Request to %s returned status %d", url, resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}
