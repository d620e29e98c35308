package main

import (
	"fmt"
	"regexp"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/crawl"
)

// Run executes the scrape command.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	targets, err := c.targets(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sift.ErrorMessage(err))
		return err
	}

	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressTargetStarted:
			fmt.Fprintf(deps.Stdout, "%s: %d URLs\n", event.Target, event.Total)
		case crawl.ProgressPageResumed:
			fmt.Fprintf(deps.Stdout, "  resume %s\n", crawl.TruncateURL(event.URL, 80))
		case crawl.ProgressPageFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", crawl.TruncateURL(event.URL, 80), event.Error)
		case crawl.ProgressTargetFinished:
			fmt.Fprintf(deps.Stdout, "  %s\n", crawl.FormatResult(event.Result))
			if event.Result.Tokens > 0 {
				fmt.Fprintf(deps.Stdout, "  sent %s\n", crawl.FormatTokens(event.Result.Tokens))
			}
		}
	}

	report, err := deps.Crawler.Run(deps.Ctx, targets, progress)
	if report != nil {
		fmt.Fprintf(deps.Stdout, "Run %s: %d records from %d targets (%d failed)\n",
			report.RunID, report.Records(), len(report.Targets), report.Failed())
		for _, d := range report.Dedup {
			printDedup(deps, d.Name, d.Result)
		}
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	if report.Failed() == len(report.Targets) {
		return fmt.Errorf("all %d targets failed", len(report.Targets))
	}
	return nil
}

// targets collects targets from the targets file, the positional
// arguments, and the sitemap.
func (c *ScrapeCmd) targets(deps *Dependencies) ([]sift.Target, error) {
	var targets []sift.Target
	if c.Targets != "" {
		loaded, err := loadTargets(c.Targets)
		if err != nil {
			return nil, err
		}
		targets = append(targets, loaded...)
	}

	if c.Target == "" {
		if c.Sitemap != "" || len(c.URLs) > 0 {
			return nil, sift.Errorf(sift.EINVALID, "target name required with URLs or --sitemap")
		}
		if len(targets) == 0 {
			return nil, sift.Errorf(sift.EINVALID, "no targets: pass a target name and URLs, or --targets")
		}
		return targets, nil
	}

	t := sift.Target{Name: c.Target, URLs: append([]string(nil), c.URLs...)}
	if c.Sitemap != "" {
		filter, err := compileFilter(c.Filter)
		if err != nil {
			return nil, err
		}
		urls, err := deps.Sitemaps.TargetURLs(deps.Ctx, c.Sitemap, filter)
		if err != nil {
			return nil, err
		}
		t.URLs = append(t.URLs, urls...)
	}
	return append(targets, t), nil
}

func compileFilter(patterns []string) (*sift.URLFilter, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	filter := &sift.URLFilter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, sift.Errorf(sift.EINVALID, "invalid filter pattern %q: %v", p, err)
		}
		filter.Include = append(filter.Include, re)
	}
	return filter, nil
}

func printDedup(deps *Dependencies, name string, r *sift.DedupResult) {
	fmt.Fprintf(deps.Stdout, "%s: %d records in, %d canonical, %d duplicates removed",
		name, r.Input, len(r.Canonical), r.Input-len(r.Skipped)-len(r.Canonical))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(deps.Stdout, ", %d skipped", len(r.Skipped))
	}
	fmt.Fprintln(deps.Stdout)
}
