// Package trafilatura removes boilerplate from pages using go-trafilatura.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/sift"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements sift.ContentExtractor at compile time.
var _ sift.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to extract main content from HTML.
// Links are kept because profile and product URLs are record fields.
type Extractor struct {
	fallback sift.ContentExtractor
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFallback sets the extractor used when trafilatura fails or finds no
// main content.
func WithFallback(e sift.ContentExtractor) Option {
	return func(x *Extractor) {
		x.fallback = e
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes raw HTML and returns the main content.
func (e *Extractor) Extract(rawHTML string) (*sift.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, sift.Errorf(sift.EINVALID, "empty HTML input")
	}

	result, err := e.extract(rawHTML)
	if err != nil || strings.TrimSpace(result.ContentHTML) == "" {
		if e.fallback != nil {
			return e.fallback.Extract(rawHTML)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *Extractor) extract(rawHTML string) (*sift.ExtractResult, error) {
	opts := trafilatura.Options{
		EnableFallback:  true,
		IncludeLinks:    true,
		ExcludeComments: true,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, err
	}

	var contentHTML string
	if result.ContentNode != nil {
		contentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return nil, err
		}
	}

	return &sift.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: contentHTML,
	}, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
