package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/chromedp/chromedp"
	"katom-scraper/internal/types"
)

// ErrPageNotFound signals that the target page resolved but reports the
// product as absent. It is terminal for the row and never retried.
var ErrPageNotFound = errors.New("page not found")

// BrowserClient drives a headless Chrome session for product page fetches
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// FetchProduct navigates to url and returns the rendered page HTML once the
// element matched by titleSelector is present.
//
// The page title is inspected right after navigation: a title containing
// "404" or "not found" returns ErrPageNotFound without waiting for anything
// else. Failing to see the title element within the configured wait is an
// ordinary error and left to the caller's retry policy. The browser session
// is scoped to this call and released on every exit path.
func (b *BrowserClient) FetchProduct(ctx context.Context, url string, titleSelector string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.config.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Page-load timeout covers navigation and reading the document title.
	loadCtx, cancelLoad := context.WithTimeout(browserCtx, b.config.PageLoadTimeout)
	defer cancelLoad()

	var pageTitle string
	err := chromedp.Run(loadCtx,
		chromedp.Navigate(url),
		chromedp.Title(&pageTitle),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	lower := strings.ToLower(pageTitle)
	if strings.Contains(lower, "404") || strings.Contains(lower, "not found") {
		b.logger.Debugf("Page title %q indicates a missing product at %s", pageTitle, url)
		return "", ErrPageNotFound
	}

	waitCtx, cancelWait := context.WithTimeout(browserCtx, b.config.ElementWait)
	defer cancelWait()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(titleSelector, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("timed out waiting for %s on %s: %w", titleSelector, url, err)
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page content from %s: %w", url, err)
	}

	b.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", url, len(html))
	return html, nil
}
