package mock

import "github.com/fwojciec/sift"

var _ sift.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of sift.ContentExtractor.
type ContentExtractor struct {
	ExtractFn func(html string) (*sift.ExtractResult, error)
}

func (e *ContentExtractor) Extract(html string) (*sift.ExtractResult, error) {
	return e.ExtractFn(html)
}
