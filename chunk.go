package sift

import (
	"strings"
	"time"
)

// Chunk is a bounded-size slice of a page's content, sized to fit one
// extraction call.
type Chunk struct {
	SourceURL string    `json:"sourceUrl"`
	FetchedAt time.Time `json:"fetchedAt"`

	// Ordinal is the zero-based position of the chunk within its page.
	Ordinal int `json:"ordinal"`

	// Start is the byte offset of Content within the page content.
	Start int `json:"start"`

	// Overlap is the number of leading bytes of Content repeated from the
	// previous chunk. Always 0 for the first chunk.
	Overlap int `json:"overlap"`

	Content string `json:"content"`
}

// Validate returns an error if the chunk contains invalid fields.
func (c *Chunk) Validate() error {
	if c.SourceURL == "" {
		return Errorf(EINVALID, "chunk source URL required")
	}
	if c.Content == "" {
		return Errorf(EINVALID, "chunk content required")
	}
	if c.Overlap < 0 || c.Overlap > len(c.Content) {
		return Errorf(EINVALID, "chunk overlap %d out of range", c.Overlap)
	}
	return nil
}

// Fresh returns the part of the chunk not repeated from the previous chunk.
func (c *Chunk) Fresh() string {
	return c.Content[c.Overlap:]
}

// Provenance returns the source of the chunk.
func (c *Chunk) Provenance() Provenance {
	return Provenance{URL: c.SourceURL, FetchedAt: c.FetchedAt}
}

// Reassemble concatenates chunks minus their declared overlap.
// For chunks produced from one page it returns the page content.
func Reassemble(chunks []Chunk) string {
	var sb strings.Builder
	for i := range chunks {
		sb.WriteString(chunks[i].Fresh())
	}
	return sb.String()
}

// Chunker splits page content into chunks.
type Chunker interface {
	// Split returns the ordered chunks of the page. Calling Split again
	// with the same page returns the same chunks.
	Split(page *PageContent) ([]Chunk, error)
}
