// Package readability extracts main content using go-readability. It serves
// as the fallback for pages the primary extractor cannot handle.
package readability

import (
	"strings"

	"github.com/fwojciec/sift"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements sift.ContentExtractor at compile time.
var _ sift.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to extract main content from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract processes raw HTML and returns the main content.
// Returns ENOTFOUND if readability finds nothing worth keeping.
func (e *Extractor) Extract(rawHTML string) (*sift.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, sift.Errorf(sift.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(article.Content)
	if content == "" {
		return nil, sift.Errorf(sift.ENOTFOUND, "no readable content")
	}

	return &sift.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: content,
	}, nil
}
