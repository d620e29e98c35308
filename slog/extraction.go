package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sift"
)

// Ensure the decorators implement their interfaces.
var (
	_ sift.ExtractionService = (*LoggingExtractionService)(nil)
	_ sift.RecordExtractor   = (*LoggingRecordExtractor)(nil)
)

// LoggingExtractionService logs every model call.
type LoggingExtractionService struct {
	next   sift.ExtractionService
	logger *slog.Logger
}

// NewLoggingExtractionService creates a new LoggingExtractionService.
func NewLoggingExtractionService(next sift.ExtractionService, logger *slog.Logger) *LoggingExtractionService {
	return &LoggingExtractionService{next: next, logger: logger}
}

// Complete delegates to the wrapped service. Retries are logged at debug
// level with the correction hint that prompted them.
func (s *LoggingExtractionService) Complete(ctx context.Context, req sift.ExtractionRequest) (resp string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "extraction call",
			"input_bytes", len(req.Text),
			"output_bytes", len(resp),
			"retry", req.CorrectionHint != "",
			"hint", req.CorrectionHint,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Complete(ctx, req)
}

// LoggingRecordExtractor logs the outcome of each chunk.
type LoggingRecordExtractor struct {
	next   sift.RecordExtractor
	logger *slog.Logger
}

// NewLoggingRecordExtractor creates a new LoggingRecordExtractor.
func NewLoggingRecordExtractor(next sift.RecordExtractor, logger *slog.Logger) *LoggingRecordExtractor {
	return &LoggingRecordExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor.
func (e *LoggingRecordExtractor) Extract(ctx context.Context, chunk sift.Chunk, schema *sift.Schema) (ext *sift.Extraction, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", chunk.SourceURL,
			"chunk", chunk.Ordinal,
			"duration", time.Since(begin),
		}
		if ext != nil {
			attrs = append(attrs,
				"attempts", ext.Attempts,
				"valid", len(ext.Valid()),
				"rejected", len(ext.Rejected()),
			)
		}
		attrs = append(attrs, "err", err)
		e.logger.Info("extract", attrs...)
	}(time.Now())
	return e.next.Extract(ctx, chunk, schema)
}
