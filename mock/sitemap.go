package mock

import (
	"context"

	"github.com/fwojciec/sift"
)

var _ sift.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of sift.SitemapService.
type SitemapService struct {
	TargetURLsFn func(ctx context.Context, sitemapURL string, filter *sift.URLFilter) ([]string, error)
}

func (s *SitemapService) TargetURLs(ctx context.Context, sitemapURL string, filter *sift.URLFilter) ([]string, error) {
	return s.TargetURLsFn(ctx, sitemapURL, filter)
}
