package crawl

import (
	"fmt"

	"github.com/fwojciec/sift"
)

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// FormatTokens formats token count in human-readable form.
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("~%d tokens", tokens)
	}
	return fmt.Sprintf("~%dk tokens", (tokens+500)/1000)
}

// FormatResult summarizes a target result on one line, e.g.
// "faculty-a: partial, 3/4 pages, 12 records, 2 rejected".
func FormatResult(r *sift.TargetResult) string {
	total := r.Pages + r.PagesFailed
	s := fmt.Sprintf("%s: %s, %d/%d pages, %d records", r.Target, r.Status, r.Pages, total, r.Records)
	if r.Resumed > 0 {
		s += fmt.Sprintf(", %d resumed", r.Resumed)
	}
	if r.Rejected > 0 {
		s += fmt.Sprintf(", %d rejected", r.Rejected)
	}
	return s
}
