package sift

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms clean HTML (e.g., from a ContentExtractor)
	// into Markdown. Block structure survives as blank-line separated
	// paragraphs and one-line table rows, which the chunker splits on.
	Convert(html string) (string, error)
}
