package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	maxFetchRetries = 3
	// courtesyDelay spaces out consecutive page fetches so the source
	// does not rate-limit the scraper.
	courtesyDelay = 2 * time.Second
)

// Fetcher downloads source pages with browser-like headers and bounded
// exponential backoff on transient failures.
type Fetcher struct {
	client    *http.Client
	userAgent string
	lastFetch time.Time
}

// NewFetcher creates a new page fetcher
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
		userAgent: userAgent,
	}
}

// Run fetches a single page, retrying transient failures
func (f *Fetcher) Run(ctx context.Context, url string) ([]byte, error) {
	f.pause(ctx)

	operation := func() ([]byte, error) {
		return f.fetch(ctx, url)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxFetchRetries), ctx)
	data, err := backoff.RetryWithData(operation, b)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	f.lastFetch = time.Now()
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	// The source blocks requests that do not look like a browser.
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Referer", "https://www.espn.com.br/")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "max-age=0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// pause enforces the courtesy delay between consecutive fetches
func (f *Fetcher) pause(ctx context.Context) {
	if f.lastFetch.IsZero() {
		return
	}
	wait := courtesyDelay - time.Since(f.lastFetch)
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
