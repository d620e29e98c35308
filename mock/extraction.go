package mock

import (
	"context"

	"github.com/fwojciec/sift"
)

// Compile-time interface verification.
var (
	_ sift.ExtractionService = (*ExtractionService)(nil)
	_ sift.RecordExtractor   = (*RecordExtractor)(nil)
)

// ExtractionService is a mock implementation of sift.ExtractionService.
type ExtractionService struct {
	CompleteFn func(ctx context.Context, req sift.ExtractionRequest) (string, error)
}

func (s *ExtractionService) Complete(ctx context.Context, req sift.ExtractionRequest) (string, error) {
	return s.CompleteFn(ctx, req)
}

// RecordExtractor is a mock implementation of sift.RecordExtractor.
type RecordExtractor struct {
	ExtractFn func(ctx context.Context, chunk sift.Chunk, schema *sift.Schema) (*sift.Extraction, error)
}

func (e *RecordExtractor) Extract(ctx context.Context, chunk sift.Chunk, schema *sift.Schema) (*sift.Extraction, error) {
	return e.ExtractFn(ctx, chunk, schema)
}
