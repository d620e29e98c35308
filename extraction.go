package sift

import "context"

// ExtractionRequest is one call to the model-backed extraction service.
type ExtractionRequest struct {
	// Text is the chunk content to extract records from.
	Text string

	// Schema describes the records to return.
	Schema *Schema

	// Instruction tells the model what to extract and in which shape.
	Instruction string

	// CorrectionHint is set on retries and explains what was wrong with
	// the previous response.
	CorrectionHint string
}

// ExtractionService is the boundary to the language model.
// It returns the model's raw response text, which may be empty, carry
// extra fields, or not be well-formed at all. Failures worth retrying are
// wrapped with NewTransientError.
type ExtractionService interface {
	Complete(ctx context.Context, req ExtractionRequest) (string, error)
}

// Extraction is the result of extracting one chunk.
type Extraction struct {
	Candidates []CandidateRecord

	// Attempts is the number of service calls made, including the one
	// whose response was accepted.
	Attempts int
}

// Valid returns the candidates that passed validation, in response order.
func (e *Extraction) Valid() []CandidateRecord {
	var out []CandidateRecord
	for _, c := range e.Candidates {
		if c.Status == StatusValid {
			out = append(out, c)
		}
	}
	return out
}

// Rejected returns the validation errors of invalid candidates.
func (e *Extraction) Rejected() []*ValidationError {
	var out []*ValidationError
	for _, c := range e.Candidates {
		if c.Status == StatusInvalid && c.Invalid != nil {
			out = append(out, c.Invalid)
		}
	}
	return out
}

// RecordExtractor turns a chunk into candidate records.
// A chunk that cannot be extracted returns *ExtractionError.
type RecordExtractor interface {
	Extract(ctx context.Context, chunk Chunk, schema *Schema) (*Extraction, error)
}
