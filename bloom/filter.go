// Package bloom remembers processed pages in compact Bloom filters that are
// kept on disk between runs.
package bloom

import (
	"io"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/sift"
)

// Ensure Filter implements sift.PageLog.
var _ sift.PageLog = (*Filter)(nil)

// Filter is a set of URLs backed by a Bloom filter. Test may report a URL
// that was never added, at roughly the false positive rate the filter was
// sized for, but never misses one that was. URLs are compared in the form
// returned by sift.NormalizeURL.
type Filter struct {
	mu sync.Mutex
	f  *bloom.BloomFilter
}

// NewFilter creates a new filter sized for n expected URLs with the given
// false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add records the URL.
func (f *Filter) Add(rawURL string) {
	key := sift.NormalizeURL(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f.AddString(key)
}

// Test reports whether the URL may have been added.
func (f *Filter) Test(rawURL string) bool {
	key := sift.NormalizeURL(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.TestString(key)
}

// TestAndAdd records the URL and reports whether it may have been added
// before.
func (f *Filter) TestAndAdd(rawURL string) bool {
	key := sift.NormalizeURL(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.TestOrAddString(key)
}

// Seen implements sift.PageLog.
func (f *Filter) Seen(url string) bool { return f.Test(url) }

// Record implements sift.PageLog.
func (f *Filter) Record(url string) { f.Add(url) }

// EstimatedCount returns the approximate number of URLs in the filter.
func (f *Filter) EstimatedCount() uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint(f.f.ApproximatedSize())
}

// WriteTo writes the filter in the binary format of the bloom library.
func (f *Filter) WriteTo(w io.Writer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.WriteTo(w)
}

// ReadFrom replaces the filter with one previously written by WriteTo.
func (f *Filter) ReadFrom(r io.Reader) (int64, error) {
	g := &bloom.BloomFilter{}
	n, err := g.ReadFrom(r)
	if err != nil {
		return n, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f = g
	return n, nil
}
