package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/crawl"
	"github.com/fwojciec/sift/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fetchedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newLoader(fetch func(ctx context.Context, url string) (string, error)) *crawl.Loader {
	return &crawl.Loader{
		Fetcher: &mock.Fetcher{FetchFn: fetch},
		Extractor: &mock.ContentExtractor{
			ExtractFn: func(html string) (*sift.ExtractResult, error) {
				return &sift.ExtractResult{Title: "People", ContentHTML: html}, nil
			},
		},
		Converter: &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				return "md:" + html, nil
			},
		},
		RetryDelays: []time.Duration{0, 0},
		Now:         func() time.Time { return fetchedAt },
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	t.Run("returns converted page content", func(t *testing.T) {
		t.Parallel()

		l := newLoader(func(_ context.Context, _ string) (string, error) {
			return "<p>Jane Doe</p>", nil
		})

		page, err := l.Load(context.Background(), "https://a.edu/people")

		require.NoError(t, err)
		assert.Equal(t, &sift.PageContent{
			URL:       "https://a.edu/people",
			Title:     "People",
			Content:   "md:<p>Jane Doe</p>",
			FetchedAt: fetchedAt,
		}, page)
	})

	t.Run("rejects malformed URL without fetching", func(t *testing.T) {
		t.Parallel()

		l := newLoader(func(_ context.Context, _ string) (string, error) {
			t.Fatal("fetch should not be called")
			return "", nil
		})

		_, err := l.Load(context.Background(), "not a url")

		var fe *sift.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, sift.FetchPermanent, fe.Kind)
	})

	t.Run("waits on the host limiter", func(t *testing.T) {
		t.Parallel()

		var host string
		l := newLoader(func(_ context.Context, _ string) (string, error) { return "x", nil })
		l.Limiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				host = domain
				return nil
			},
		}

		_, err := l.Load(context.Background(), "https://a.edu:8443/people")

		require.NoError(t, err)
		assert.Equal(t, "a.edu", host)
	})

	t.Run("retries transient fetch failures", func(t *testing.T) {
		t.Parallel()

		var calls int
		l := newLoader(func(_ context.Context, url string) (string, error) {
			calls++
			if calls == 1 {
				return "", transient(url, 503)
			}
			return "x", nil
		})

		_, err := l.Load(context.Background(), "https://a.edu")

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("waits on the host limiter before every attempt", func(t *testing.T) {
		t.Parallel()

		var (
			calls int
			waits []string
		)
		l := newLoader(func(_ context.Context, url string) (string, error) {
			calls++
			if calls < 3 {
				return "", transient(url, 503)
			}
			return "x", nil
		})
		l.Limiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				waits = append(waits, domain)
				return nil
			},
		}

		_, err := l.Load(context.Background(), "https://A.edu/people")

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []string{"a.edu", "a.edu", "a.edu"}, waits)
	})

	t.Run("stops when the limiter is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		l := newLoader(func(_ context.Context, _ string) (string, error) {
			t.Fatal("fetch should not be called")
			return "", nil
		})
		l.Limiter = &mock.DomainLimiter{
			WaitFn: func(context.Context, string) error {
				cancel()
				return context.Canceled
			},
		}

		_, err := l.Load(ctx, "https://a.edu")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("wraps extractor failures", func(t *testing.T) {
		t.Parallel()

		l := newLoader(func(_ context.Context, _ string) (string, error) { return "x", nil })
		l.Extractor = &mock.ContentExtractor{
			ExtractFn: func(string) (*sift.ExtractResult, error) { return nil, errors.New("no content") },
		}

		_, err := l.Load(context.Background(), "https://a.edu")

		assert.ErrorContains(t, err, "extract content https://a.edu: no content")
	})
}
