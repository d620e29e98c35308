package crawl

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fwojciec/sift"
)

var _ sift.PageLoader = (*Loader)(nil)

// Loader turns a URL into PageContent: rate limit, fetch with retry,
// boilerplate removal, then markdown conversion.
type Loader struct {
	Fetcher   sift.Fetcher
	Extractor sift.ContentExtractor
	Converter sift.Converter

	// Limiter spaces requests per host. May be nil.
	Limiter sift.DomainLimiter

	// RetryDelays are the waits between fetch attempts. Nil means
	// DefaultRetryDelays; an empty slice disables retries.
	RetryDelays []time.Duration

	// OnRetry, if set, is called before each fetch retry.
	OnRetry RetryFunc

	// Now returns the fetch time. Defaults to time.Now.
	Now func() time.Time
}

// Load fetches the URL and returns its main content as markdown.
// Fetch failures are returned as *sift.FetchError.
func (l *Loader) Load(ctx context.Context, rawURL string) (*sift.PageContent, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &sift.FetchError{URL: rawURL, Kind: sift.FetchPermanent, Attempts: 1, Err: fmt.Errorf("invalid URL")}
	}

	delays := l.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	// Every attempt, retries included, waits for the host's rate limit.
	host := Host(rawURL)
	var fetchedAt time.Time
	fetch := func(ctx context.Context, url string) (string, error) {
		if l.Limiter != nil {
			if err := l.Limiter.Wait(ctx, host); err != nil {
				return "", err
			}
		}
		fetchedAt = now()
		return l.Fetcher.Fetch(ctx, url)
	}
	html, err := FetchWithRetry(ctx, rawURL, fetch, delays, l.OnRetry)
	if err != nil {
		return nil, err
	}

	extracted, err := l.Extractor.Extract(html)
	if err != nil {
		return nil, fmt.Errorf("extract content %s: %w", rawURL, err)
	}

	markdown, err := l.Converter.Convert(extracted.ContentHTML)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", rawURL, err)
	}

	page := &sift.PageContent{
		URL:       rawURL,
		Title:     extracted.Title,
		Content:   markdown,
		FetchedAt: fetchedAt.UTC(),
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return page, nil
}
