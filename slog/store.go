package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/sift"
)

var (
	_ sift.StoreOpener = (*LoggingStoreOpener)(nil)
	_ sift.RecordStore = (*LoggingRecordStore)(nil)
)

// LoggingStoreOpener wraps every opened store with a LoggingRecordStore.
type LoggingStoreOpener struct {
	next   sift.StoreOpener
	logger *slog.Logger
}

// NewLoggingStoreOpener creates a new LoggingStoreOpener.
func NewLoggingStoreOpener(next sift.StoreOpener, logger *slog.Logger) *LoggingStoreOpener {
	return &LoggingStoreOpener{next: next, logger: logger}
}

// OpenStore delegates to the wrapped opener.
func (o *LoggingStoreOpener) OpenStore(ctx context.Context, target string) (sift.RecordStore, error) {
	store, err := o.next.OpenStore(ctx, target)
	if err != nil {
		o.logger.Error("open store", "target", target, "err", err)
		return nil, err
	}
	return NewLoggingRecordStore(store, target, o.logger), nil
}

// LoggingRecordStore logs appended records at debug level and failures at
// error level.
type LoggingRecordStore struct {
	next   sift.RecordStore
	target string
	logger *slog.Logger
}

// NewLoggingRecordStore creates a new LoggingRecordStore.
func NewLoggingRecordStore(next sift.RecordStore, target string, logger *slog.Logger) *LoggingRecordStore {
	return &LoggingRecordStore{next: next, target: target, logger: logger}
}

// Append delegates to the wrapped store.
func (s *LoggingRecordStore) Append(ctx context.Context, rec *sift.ValidatedRecord) error {
	if err := s.next.Append(ctx, rec); err != nil {
		s.logger.Error("append record", "target", s.target, "id", rec.ID, "err", err)
		return err
	}
	s.logger.Debug("append record", "target", s.target, "id", rec.ID, "url", rec.Provenance.URL)
	return nil
}

// ReadAll delegates to the wrapped store.
func (s *LoggingRecordStore) ReadAll(ctx context.Context) ([]*sift.ValidatedRecord, []error, error) {
	recs, skipped, err := s.next.ReadAll(ctx)
	for _, e := range skipped {
		s.logger.Warn("skip record", "target", s.target, "err", e)
	}
	s.logger.Debug("read records", "target", s.target, "count", len(recs), "skipped", len(skipped), "err", err)
	return recs, skipped, err
}
