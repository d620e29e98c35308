package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sift"
)

var _ sift.ContentExtractor = (*ListingExtractor)(nil)

// ListingExtractor keeps only the repeated record cards of a listing page,
// one block per card, so each card lands in the markdown as its own
// paragraph. Pages without a detectable listing go to Fallback.
type ListingExtractor struct {
	Detector *Detector
	Fallback sift.ContentExtractor
}

// NewListingExtractor creates a ListingExtractor detecting cards by the
// given keywords.
func NewListingExtractor(keywords []string, fallback sift.ContentExtractor) *ListingExtractor {
	return &ListingExtractor{
		Detector: NewDetector(keywords),
		Fallback: fallback,
	}
}

// Extract returns the cards of the page's listing as HTML.
func (e *ListingExtractor) Extract(html string) (*sift.ExtractResult, error) {
	if strings.TrimSpace(html) == "" {
		return nil, sift.Errorf(sift.EINVALID, "empty HTML input")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sift.Errorf(sift.EINVALID, "failed to parse HTML: %v", err)
	}

	listing, ok := e.Detector.Detect(doc)
	if !ok {
		if e.Fallback == nil {
			return nil, sift.Errorf(sift.ENOTFOUND, "no listing detected")
		}
		return e.Fallback.Extract(html)
	}

	var b strings.Builder
	for _, card := range listing.Cards {
		inner, err := card.Html()
		if err != nil {
			return nil, err
		}
		b.WriteString("<div>")
		b.WriteString(inner)
		b.WriteString("</div>\n")
	}

	return &sift.ExtractResult{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		ContentHTML: b.String(),
	}, nil
}
