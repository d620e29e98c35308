package mock

import (
	"context"

	"github.com/fwojciec/sift"
)

// Compile-time interface verification.
var (
	_ sift.PageLoader   = (*PageLoader)(nil)
	_ sift.Chunker      = (*Chunker)(nil)
	_ sift.PageLog      = (*PageLog)(nil)
	_ sift.PageLogStore = (*PageLogStore)(nil)
)

// PageLoader is a mock implementation of sift.PageLoader.
type PageLoader struct {
	LoadFn func(ctx context.Context, url string) (*sift.PageContent, error)
}

func (l *PageLoader) Load(ctx context.Context, url string) (*sift.PageContent, error) {
	return l.LoadFn(ctx, url)
}

// Chunker is a mock implementation of sift.Chunker.
type Chunker struct {
	SplitFn func(page *sift.PageContent) ([]sift.Chunk, error)
}

func (c *Chunker) Split(page *sift.PageContent) ([]sift.Chunk, error) {
	return c.SplitFn(page)
}

// PageLog is a mock implementation of sift.PageLog.
type PageLog struct {
	SeenFn   func(url string) bool
	RecordFn func(url string)
}

func (l *PageLog) Seen(url string) bool {
	return l.SeenFn(url)
}

func (l *PageLog) Record(url string) {
	l.RecordFn(url)
}

// PageLogStore is a mock implementation of sift.PageLogStore.
type PageLogStore struct {
	OpenPageLogFn func(ctx context.Context, target string) (sift.PageLog, error)
	SavePageLogFn func(ctx context.Context, target string, log sift.PageLog) error
}

func (s *PageLogStore) OpenPageLog(ctx context.Context, target string) (sift.PageLog, error) {
	return s.OpenPageLogFn(ctx, target)
}

func (s *PageLogStore) SavePageLog(ctx context.Context, target string, log sift.PageLog) error {
	return s.SavePageLogFn(ctx, target, log)
}
