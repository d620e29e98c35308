// Package rod fetches JavaScript-rendered listing pages with a headless
// browser.
package rod

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/sift"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements sift.Fetcher at compile time.
var _ sift.Fetcher = (*Fetcher)(nil)

// Defaults for Fetcher.
const (
	DefaultFetchTimeout      = 30 * time.Second
	DefaultMaxLoadMoreClicks = 10
	DefaultLoadMorePause     = time.Second
)

// loadMoreXPath matches buttons and links whose text mentions "load",
// e.g. "Load more" or "LOAD ALL PEOPLE".
const loadMoreXPath = `//button[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'load')]` +
	` | //a[contains(translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), 'load')]`

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// Listing pages that reveal records behind a "load more" control are
// expanded by clicking it until it disappears or the click limit is hit.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager     *BrowserManager
	timeout     time.Duration
	maxClicks   int
	pause       time.Duration
	managerOpts []ManagerOption
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds a single page load including load-more clicks.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxLoadMoreClicks limits load-more clicks per page. Zero disables
// clicking.
func WithMaxLoadMoreClicks(n int) Option {
	return func(f *Fetcher) {
		f.maxClicks = n
	}
}

// WithLoadMorePause sets the wait after each load-more click.
func WithLoadMorePause(d time.Duration) Option {
	return func(f *Fetcher) {
		f.pause = d
	}
}

// WithManagerOptions passes options to the underlying BrowserManager.
func WithManagerOptions(opts ...ManagerOption) Option {
	return func(f *Fetcher) {
		f.managerOpts = append(f.managerOpts, opts...)
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		maxClicks: DefaultMaxLoadMoreClicks,
		pause:     DefaultLoadMorePause,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(f.managerOpts...)
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to the URL, expands the listing, and returns the
// rendered HTML. Failures are returned as *sift.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	browser, err := f.manager.Browser()
	if err != nil {
		return "", err
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", &sift.FetchError{URL: url, Kind: sift.FetchTransient, Err: err}
	}
	defer page.Close()
	defer f.manager.IncrementPageCount()

	pctx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	page = page.Context(pctx)

	if err := page.Navigate(url); err != nil {
		return "", classify(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", classify(ctx, url, err)
	}

	if err := f.loadMore(pctx, page); err != nil {
		return "", classify(ctx, url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", classify(ctx, url, err)
	}
	return html, nil
}

// loadMore clicks the first visible load-more control until none is left.
func (f *Fetcher) loadMore(ctx context.Context, page *rod.Page) error {
	for i := 0; i < f.maxClicks; i++ {
		elems, err := page.ElementsX(loadMoreXPath)
		if err != nil {
			return err
		}

		var target *rod.Element
		for _, el := range elems {
			if visible, err := el.Visible(); err == nil && visible {
				target = el
				break
			}
		}
		if target == nil {
			return nil
		}
		if err := target.Click(proto.InputMouseButtonLeft, 1); err != nil {
			// A control that cannot be clicked ends expansion, not the fetch.
			return nil
		}

		timer := time.NewTimer(f.pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// classify turns a browser failure into a FetchError. Cancellation by the
// caller is returned as is.
func classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	kind := sift.FetchTransient
	var nav *rod.NavigationError
	if errors.As(err, &nav) && permanentReason(nav.Reason) {
		kind = sift.FetchPermanent
	}
	return &sift.FetchError{URL: url, Kind: kind, Err: err}
}

// permanentReason reports whether a Chrome net error can never succeed on
// retry.
func permanentReason(reason string) bool {
	for _, r := range []string{
		"ERR_NAME_NOT_RESOLVED",
		"ERR_INVALID_URL",
		"ERR_UNKNOWN_URL_SCHEME",
		"ERR_BLOCKED_BY_CLIENT",
		"ERR_CERT_",
	} {
		if strings.Contains(reason, r) {
			return true
		}
	}
	return false
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// Close releases browser resources.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}
