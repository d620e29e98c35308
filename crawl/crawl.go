// Package crawl runs the extraction pipeline over scrape targets.
// Each target runs fetch, chunk, extract, and append in sequence; targets
// run concurrently and never affect each other. Deduplication runs once
// every target has finished.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/extract"
	"golang.org/x/sync/errgroup"
)

// Default configuration values.
const (
	DefaultConcurrency   = 4
	DefaultCanonicalName = "canonical"
)

// Crawler orchestrates one run over a set of targets.
type Crawler struct {
	Loader    sift.PageLoader
	Chunker   sift.Chunker
	Extractor sift.RecordExtractor
	Stores    sift.StoreOpener
	Schema    *sift.Schema

	// Runs records per-target results. May be nil.
	Runs sift.RunService

	// Deduplicator and Canonical run after every target has finished.
	// Deduplication is skipped when either is nil.
	Deduplicator sift.Deduplicator
	Canonical    sift.CanonicalWriter

	// PageLogs, if set, makes runs resumable: pages a target fully
	// processed in an earlier run are skipped and counted as resumed.
	PageLogs sift.PageLogStore

	// TokenCounter, if set, counts the tokens of each chunk sent for
	// extraction. Counting failures are ignored.
	TokenCounter sift.TokenCounter

	// Concurrency is the number of targets processed at once.
	Concurrency int

	// DedupPerTarget deduplicates each target's store on its own instead
	// of the union of all stores.
	DedupPerTarget bool

	// CanonicalName names the canonical output of a union pass.
	CanonicalName string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Report is the outcome of a run.
type Report struct {
	RunID   string
	Targets []*sift.TargetResult
	Dedup   []*DedupReport
}

// Failed returns the number of targets whose pipeline failed.
func (r *Report) Failed() int {
	var n int
	for _, t := range r.Targets {
		if t.Status == sift.TargetFailure {
			n++
		}
	}
	return n
}

// Records returns the number of records appended across all targets.
func (r *Report) Records() int {
	var n int
	for _, t := range r.Targets {
		n += t.Records
	}
	return n
}

// DedupReport is the outcome of one deduplication pass.
type DedupReport struct {
	Name   string
	Result *sift.DedupResult
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type      ProgressType
	Target    string
	URL       string
	Completed int
	Total     int
	Records   int
	Error     error
	Result    *sift.TargetResult
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressTargetStarted ProgressType = iota
	ProgressPageCompleted
	ProgressPageFailed
	ProgressPageSkipped
	ProgressPageResumed
	ProgressTargetFinished
	ProgressDedupFinished
)

// ProgressFunc is a callback for reporting run progress.
// Calls are serialized; the callback need not be safe for concurrent use.
type ProgressFunc func(event ProgressEvent)

// Validate returns an error if the crawler is missing a dependency.
func (c *Crawler) Validate() error {
	switch {
	case c.Loader == nil:
		return sift.Errorf(sift.ECONFIG, "crawler: page loader required")
	case c.Chunker == nil:
		return sift.Errorf(sift.ECONFIG, "crawler: chunker required")
	case c.Extractor == nil:
		return sift.Errorf(sift.ECONFIG, "crawler: record extractor required")
	case c.Stores == nil:
		return sift.Errorf(sift.ECONFIG, "crawler: store opener required")
	case c.Schema == nil:
		return sift.Errorf(sift.ECONFIG, "crawler: schema required")
	}
	return c.Schema.Validate()
}

// Run processes every target and then deduplicates the stored records.
// A failing target is reported in its TargetResult and never aborts the
// others. The returned error is non-nil only when the run could not be
// carried out at all, or when deduplication failed.
func (c *Crawler) Run(ctx context.Context, targets []sift.Target, progress ProgressFunc) (*Report, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(targets))
	for i := range targets {
		if err := targets[i].Validate(); err != nil {
			return nil, err
		}
		if names[targets[i].Name] {
			return nil, sift.Errorf(sift.EINVALID, "duplicate target %q", targets[i].Name)
		}
		names[targets[i].Name] = true
	}

	report := &Report{Targets: make([]*sift.TargetResult, len(targets))}
	if c.Runs != nil {
		run := &sift.Run{Schema: c.Schema.Name}
		if err := c.Runs.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		report.RunID = run.ID
	}

	emit := serialize(progress)

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range targets {
		target := targets[i]
		tctx, cancel := context.WithCancel(ctx)
		c.register(target.Name, cancel)
		g.Go(func() error {
			defer c.unregister(target.Name)
			defer cancel()
			report.Targets[i] = c.runTarget(tctx, report.RunID, target, emit)
			return nil
		})
	}
	_ = g.Wait()

	if c.Runs != nil {
		// Run bookkeeping outlives a canceled run so partial results are kept.
		rctx := context.WithoutCancel(ctx)
		for _, res := range report.Targets {
			if err := c.Runs.RecordTarget(rctx, res); err != nil {
				return report, fmt.Errorf("record target %s: %w", res.Target, err)
			}
		}
		if err := c.Runs.FinishRun(rctx, report.RunID); err != nil {
			return report, fmt.Errorf("finish run: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if c.Deduplicator == nil || c.Canonical == nil {
		return report, nil
	}
	if err := c.dedup(ctx, targets, report, emit); err != nil {
		return report, err
	}
	return report, nil
}

// CancelTarget stops the pipeline of the named target. Pages already
// processed stay in its store. Returns false if the target is not running.
func (c *Crawler) CancelTarget(name string) bool {
	c.mu.Lock()
	cancel, ok := c.cancels[name]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (c *Crawler) register(name string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancels == nil {
		c.cancels = make(map[string]context.CancelFunc)
	}
	c.cancels[name] = cancel
}

func (c *Crawler) unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancels, name)
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// runTarget runs one target's pipeline. Every failure is recorded in the
// result; nothing here returns early on a page or chunk error.
func (c *Crawler) runTarget(ctx context.Context, runID string, target sift.Target, emit ProgressFunc) *sift.TargetResult {
	res := &sift.TargetResult{
		RunID:     runID,
		Target:    target.Name,
		StartedAt: c.now(),
	}
	total := len(target.URLs)
	emit(ProgressEvent{Type: ProgressTargetStarted, Target: target.Name, Total: total})

	finish := func() *sift.TargetResult {
		res.FinishedAt = c.now()
		res.ResolveStatus()
		emit(ProgressEvent{
			Type:      ProgressTargetFinished,
			Target:    target.Name,
			Completed: total,
			Total:     total,
			Records:   res.Records,
			Result:    res,
		})
		return res
	}

	store, err := c.Stores.OpenStore(ctx, target.Name)
	if err != nil {
		res.PagesFailed = total
		res.Errors = append(res.Errors, fmt.Errorf("open store: %w", err))
		return finish()
	}

	var log sift.PageLog
	if c.PageLogs != nil {
		if log, err = c.PageLogs.OpenPageLog(ctx, target.Name); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("open page log: %w", err))
			log = nil
		}
	}

	visited := make(map[string]bool, total)
	for i, url := range target.URLs {
		if err := ctx.Err(); err != nil {
			res.PagesFailed += total - i
			res.Errors = append(res.Errors, err)
			break
		}
		key := sift.NormalizeURL(url)
		if visited[key] {
			emit(ProgressEvent{Type: ProgressPageSkipped, Target: target.Name, URL: url, Completed: i + 1, Total: total})
			continue
		}
		visited[key] = true
		if log != nil && log.Seen(url) {
			res.Resumed++
			emit(ProgressEvent{Type: ProgressPageResumed, Target: target.Name, URL: url, Completed: i + 1, Total: total})
			continue
		}

		chunksFailed := res.ChunksFailed
		records, err := c.processPage(ctx, target.Name, url, store, res)
		if err != nil {
			res.PagesFailed++
			res.Errors = append(res.Errors, err)
			emit(ProgressEvent{Type: ProgressPageFailed, Target: target.Name, URL: url, Completed: i + 1, Total: total, Error: err})
			continue
		}
		// Pages with failed chunks are retried by the next run.
		if log != nil && res.ChunksFailed == chunksFailed {
			log.Record(url)
		}
		emit(ProgressEvent{Type: ProgressPageCompleted, Target: target.Name, URL: url, Completed: i + 1, Total: total, Records: records})
	}

	if log != nil {
		if err := c.PageLogs.SavePageLog(context.WithoutCancel(ctx), target.Name, log); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("save page log: %w", err))
		}
	}
	return finish()
}

// processPage loads, splits, extracts, and appends one page. It returns an
// error only when the page itself could not be processed; chunk and
// candidate failures are recorded in res.
func (c *Crawler) processPage(ctx context.Context, target, url string, store sift.RecordStore, res *sift.TargetResult) (int, error) {
	page, err := c.Loader.Load(ctx, url)
	if err != nil {
		return 0, err
	}
	chunks, err := c.Chunker.Split(page)
	if err != nil {
		return 0, fmt.Errorf("split %s: %w", url, err)
	}
	res.Pages++

	var appended int
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			res.ChunksFailed++
			continue
		}
		res.Chunks++
		if c.TokenCounter != nil {
			if n, err := c.TokenCounter.CountTokens(ctx, chunk.Content); err == nil {
				res.Tokens += n
			}
		}

		ext, err := c.Extractor.Extract(ctx, chunk, c.Schema)
		if err != nil {
			res.ChunksFailed++
			var ee *sift.ExtractionError
			if errors.As(err, &ee) {
				res.Attempts += ee.Attempts
			}
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Attempts += ext.Attempts

		records, rejected := extract.Promote(c.Schema, ext, target)
		res.Rejected += len(rejected)
		res.Errors = append(res.Errors, rejected...)

		for _, rec := range records {
			if err := store.Append(ctx, rec); err != nil {
				res.ChunksFailed++
				res.Errors = append(res.Errors, fmt.Errorf("append record from %s: %w", url, err))
				break
			}
			res.Records++
			appended++
		}
	}
	return appended, nil
}

// dedup reads the stores of every target and writes canonical output.
// Stores are read only after every pipeline has finished. Stored records
// that cannot be read count as input of the pass and are reported both in
// its Skipped list and in the errors of the target they belong to.
func (c *Crawler) dedup(ctx context.Context, targets []sift.Target, report *Report, emit ProgressFunc) error {
	read := func(i int) ([]*sift.ValidatedRecord, []error, error) {
		name := targets[i].Name
		store, err := c.Stores.OpenStore(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("open store %s: %w", name, err)
		}
		records, skipped, err := store.ReadAll(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("read store %s: %w", name, err)
		}
		if res := report.Targets[i]; res != nil {
			res.Errors = append(res.Errors, skipped...)
		}
		return records, skipped, nil
	}
	pass := func(name string, records []*sift.ValidatedRecord, skipped []error) error {
		result, err := c.Deduplicator.Deduplicate(records)
		if err != nil {
			return fmt.Errorf("deduplicate %s: %w", name, err)
		}
		result.Input += len(skipped)
		result.Skipped = append(skipped, result.Skipped...)
		if err := c.Canonical.WriteCanonical(ctx, name, result.Canonical); err != nil {
			return fmt.Errorf("write canonical %s: %w", name, err)
		}
		report.Dedup = append(report.Dedup, &DedupReport{Name: name, Result: result})
		emit(ProgressEvent{Type: ProgressDedupFinished, Target: name, Records: len(result.Canonical)})
		return nil
	}

	if c.DedupPerTarget {
		for i, t := range targets {
			records, skipped, err := read(i)
			if err != nil {
				return err
			}
			if err := pass(t.Name, records, skipped); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		all     []*sift.ValidatedRecord
		skipped []error
	)
	for i := range targets {
		records, bad, err := read(i)
		if err != nil {
			return err
		}
		all = append(all, records...)
		skipped = append(skipped, bad...)
	}
	name := c.CanonicalName
	if name == "" {
		name = DefaultCanonicalName
	}
	return pass(name, all, skipped)
}

// serialize wraps fn so that concurrent targets never call it at once.
func serialize(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(ProgressEvent) {}
	}
	var mu sync.Mutex
	return func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		fn(e)
	}
}
