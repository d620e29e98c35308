package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/sift"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// RetryFunc is called before each retry with the attempt about to be made
// and the error that caused it.
type RetryFunc func(url string, attempt int, err error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetry fetches a URL, retrying transient failures after each of
// the given delays. Permanent failures are returned at once. When every
// attempt fails transiently the result is a *sift.FetchError of kind
// FetchExhausted wrapping the last failure.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, delays []time.Duration, onRetry RetryFunc) (string, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		html, err := fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !sift.IsTransient(err) {
			return "", err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(url, attempt+1, err)
		}

		timer := time.NewTimer(delays[attempt-1])
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	fe := &sift.FetchError{URL: url, Kind: sift.FetchExhausted, Attempts: maxAttempts, Err: lastErr}
	var cause *sift.FetchError
	if errors.As(lastErr, &cause) {
		fe.StatusCode = cause.StatusCode
		fe.Err = cause.Err
	}
	return "", fe
}
