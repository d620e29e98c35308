// Package chunk splits page content into bounded, overlapping chunks.
package chunk

import (
	"unicode/utf8"

	"github.com/fwojciec/sift"
)

// Default sizes in bytes.
const (
	DefaultMaxSize = 8000
	DefaultOverlap = 400
)

// Ensure Splitter implements sift.Chunker.
var _ sift.Chunker = (*Splitter)(nil)

// Splitter cuts content at the most natural boundary that keeps each chunk
// within MaxSize bytes. Boundaries are tried in order: blank line, newline,
// sentence end, whitespace, and finally a cut at a rune boundary.
type Splitter struct {
	// MaxSize is the upper bound on len(Chunk.Content).
	MaxSize int

	// Overlap is the number of bytes each chunk repeats from the end of the
	// previous one. The actual overlap may be a few bytes shorter so that
	// chunks never start inside a multi-byte rune.
	Overlap int
}

// NewSplitter returns a Splitter with default sizes.
func NewSplitter() *Splitter {
	return &Splitter{MaxSize: DefaultMaxSize, Overlap: DefaultOverlap}
}

// Validate returns an error if the sizes cannot produce progress.
func (s *Splitter) Validate() error {
	if s.MaxSize <= 0 {
		return sift.Errorf(sift.EINVALID, "chunk max size must be positive, got %d", s.MaxSize)
	}
	if s.Overlap < 0 {
		return sift.Errorf(sift.EINVALID, "chunk overlap must not be negative, got %d", s.Overlap)
	}
	if s.Overlap > 0 && s.Overlap >= s.MaxSize/2 {
		return sift.Errorf(sift.EINVALID, "chunk overlap %d must be less than half of max size %d", s.Overlap, s.MaxSize)
	}
	return nil
}

// Split returns the ordered chunks of the page content.
func (s *Splitter) Split(page *sift.PageContent) ([]sift.Chunk, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	text := page.Content
	if text == "" {
		return nil, nil
	}

	var chunks []sift.Chunk
	start, overlap := 0, 0
	for {
		end, err := s.cut(text, start, start+overlap)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, sift.Chunk{
			SourceURL: page.URL,
			FetchedAt: page.FetchedAt,
			Ordinal:   len(chunks),
			Start:     start,
			Overlap:   overlap,
			Content:   text[start:end],
		})
		if end == len(text) {
			return chunks, nil
		}
		start, overlap = s.next(text, start, end)
	}
}

// next returns the start of the chunk following [start, end) and the number
// of bytes it repeats.
func (s *Splitter) next(text string, start, end int) (int, int) {
	if s.Overlap == 0 {
		return end, 0
	}
	n := max(end-s.Overlap, start)
	for n < end && !utf8.RuneStart(text[n]) {
		n++
	}
	return n, end - n
}

// cut returns the end of the chunk starting at start whose new content
// begins at fresh.
func (s *Splitter) cut(text string, start, fresh int) (int, error) {
	limit := start + s.MaxSize
	if limit >= len(text) {
		return len(text), nil
	}

	// Avoid tiny chunks: a natural boundary must leave at least half the
	// window in use.
	lo := max(start+s.MaxSize/2, fresh+1)
	if lo < limit {
		window := text[lo:limit]
		if end := lastAfter(window, "\n\n"); end > 0 {
			return lo + end, nil
		}
		if end := lastAfter(window, "\n"); end > 0 {
			return lo + end, nil
		}
		if end := sentenceEnd(window); end > 0 {
			return lo + end, nil
		}
		if end := spaceEnd(window); end > 0 {
			return lo + end, nil
		}
	}

	end := limit
	for end > fresh && !utf8.RuneStart(text[end]) {
		end--
	}
	if end <= fresh {
		return 0, sift.Errorf(sift.EINVALID, "chunk max size %d cannot hold the rune at byte %d", s.MaxSize, fresh)
	}
	return end, nil
}

// lastAfter returns the offset just past the last occurrence of sep in s,
// or 0 when sep does not occur.
func lastAfter(s, sep string) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if s[i:i+len(sep)] == sep {
			return i + len(sep)
		}
	}
	return 0
}

func sentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != ' ' && s[i] != '\t' {
			continue
		}
		switch s[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}

func spaceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == '\t' {
			return i + 1
		}
	}
	return 0
}
