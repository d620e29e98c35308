package sift

import "context"

// Fetcher retrieves raw HTML from URLs.
// Implementations classify failures as *FetchError so callers can tell
// transient failures (worth retrying) from permanent ones.
type Fetcher interface {
	// Fetch retrieves the URL and returns its HTML.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}
