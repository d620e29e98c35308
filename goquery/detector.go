// Package goquery picks out repeated record cards on listing pages.
package goquery

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Defaults for Detector.
const (
	DefaultMinCards = 3
	DefaultTopN     = 10
	DefaultMinRatio = 0.5
)

// Listing is a set of repeated record cards found on a page: elements that
// share one exact class attribute.
type Listing struct {
	Class string

	// Ratio is the share of cards whose text contains a keyword.
	Ratio float64

	Cards []*goquery.Selection
}

// Detector finds the class combination most enriched for record content.
// Class attributes are counted as whole strings, the most frequent ones are
// scored by how many of their elements mention a keyword, and the best
// scoring combination wins.
type Detector struct {
	// Keywords are matched case-insensitively against each card's text.
	Keywords []string

	// MinCards is the minimum number of elements sharing a class.
	MinCards int

	// TopN limits how many of the most frequent classes are scored.
	TopN int

	// MinRatio is the minimum keyword ratio for a listing to be accepted.
	MinRatio float64
}

// NewDetector creates a new Detector with default limits.
func NewDetector(keywords []string) *Detector {
	return &Detector{
		Keywords: keywords,
		MinCards: DefaultMinCards,
		TopN:     DefaultTopN,
		MinRatio: DefaultMinRatio,
	}
}

type classCount struct {
	class string
	nodes []*goquery.Selection
}

// Detect returns the listing on the page, if any.
func (d *Detector) Detect(doc *goquery.Document) (*Listing, bool) {
	if len(d.Keywords) == 0 {
		return nil, false
	}

	counts := make(map[string]*classCount)
	var order []*classCount
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class := strings.Join(strings.Fields(s.AttrOr("class", "")), " ")
		if class == "" {
			return
		}
		c, ok := counts[class]
		if !ok {
			c = &classCount{class: class}
			counts[class] = c
			order = append(order, c)
		}
		c.nodes = append(c.nodes, s)
	})

	var frequent []*classCount
	for _, c := range order {
		if len(c.nodes) >= d.MinCards {
			frequent = append(frequent, c)
		}
	}
	sort.SliceStable(frequent, func(i, j int) bool {
		return len(frequent[i].nodes) > len(frequent[j].nodes)
	})
	if d.TopN > 0 && len(frequent) > d.TopN {
		frequent = frequent[:d.TopN]
	}

	var best *classCount
	var bestRatio float64
	for _, c := range frequent {
		r := d.ratio(c.nodes)
		// Ties go to the more frequent, then the earlier, class.
		if r > bestRatio {
			best, bestRatio = c, r
		}
	}
	if best == nil || bestRatio < d.MinRatio || bestRatio == 0 {
		return nil, false
	}

	return &Listing{Class: best.class, Ratio: bestRatio, Cards: best.nodes}, true
}

func (d *Detector) ratio(nodes []*goquery.Selection) float64 {
	var hits int
	for _, s := range nodes {
		text := strings.ToLower(s.Text())
		for _, kw := range d.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(nodes))
}
