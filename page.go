package sift

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// PageContent is the textual content of one fetched URL.
// Content is markdown produced from the page's main content.
type PageContent struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Validate returns an error if the page contains invalid fields.
func (p *PageContent) Validate() error {
	if p.URL == "" {
		return Errorf(EINVALID, "page URL required")
	}
	if p.FetchedAt.IsZero() {
		return Errorf(EINVALID, "page fetch time required")
	}
	return nil
}

// PageLoader turns a URL into PageContent.
// Implementations hide retry, rate limiting, boilerplate removal,
// and markdown conversion. Failures to retrieve the page are *FetchError.
type PageLoader interface {
	Load(ctx context.Context, url string) (*PageContent, error)
}

// PageLog remembers which pages of a target were fully processed. Seen may
// report a page that was never recorded, at a small configured rate, but
// never misses one that was.
type PageLog interface {
	Seen(url string) bool
	Record(url string)
}

// PageLogStore keeps each target's PageLog across runs so that a later run
// can resume where an earlier one stopped.
type PageLogStore interface {
	OpenPageLog(ctx context.Context, target string) (PageLog, error)
	SavePageLog(ctx context.Context, target string, log PageLog) error
}

// NormalizeURL returns the form of a URL used to recognize a page: the
// fragment is dropped and the scheme and host are lowercased. Unparsable
// URLs are returned trimmed.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
