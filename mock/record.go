package mock

import (
	"context"

	"github.com/fwojciec/sift"
)

// Compile-time interface verification.
var (
	_ sift.RecordStore     = (*RecordStore)(nil)
	_ sift.StoreOpener     = (*StoreOpener)(nil)
	_ sift.Deduplicator    = (*Deduplicator)(nil)
	_ sift.CanonicalWriter = (*CanonicalWriter)(nil)
)

// RecordStore is a mock implementation of sift.RecordStore.
type RecordStore struct {
	AppendFn  func(ctx context.Context, rec *sift.ValidatedRecord) error
	ReadAllFn func(ctx context.Context) ([]*sift.ValidatedRecord, []error, error)
}

func (s *RecordStore) Append(ctx context.Context, rec *sift.ValidatedRecord) error {
	return s.AppendFn(ctx, rec)
}

func (s *RecordStore) ReadAll(ctx context.Context) ([]*sift.ValidatedRecord, []error, error) {
	return s.ReadAllFn(ctx)
}

// StoreOpener is a mock implementation of sift.StoreOpener.
type StoreOpener struct {
	OpenStoreFn func(ctx context.Context, target string) (sift.RecordStore, error)
}

func (o *StoreOpener) OpenStore(ctx context.Context, target string) (sift.RecordStore, error) {
	return o.OpenStoreFn(ctx, target)
}

// Deduplicator is a mock implementation of sift.Deduplicator.
type Deduplicator struct {
	DeduplicateFn func(records []*sift.ValidatedRecord) (*sift.DedupResult, error)
}

func (d *Deduplicator) Deduplicate(records []*sift.ValidatedRecord) (*sift.DedupResult, error) {
	return d.DeduplicateFn(records)
}

// CanonicalWriter is a mock implementation of sift.CanonicalWriter.
type CanonicalWriter struct {
	WriteCanonicalFn func(ctx context.Context, name string, records []*sift.CanonicalRecord) error
}

func (w *CanonicalWriter) WriteCanonical(ctx context.Context, name string, records []*sift.CanonicalRecord) error {
	return w.WriteCanonicalFn(ctx, name, records)
}
