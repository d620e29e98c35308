// Package prometheus instruments sift services with Prometheus metrics.
package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/sift"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sift"

// Outcome label values.
const (
	outcomeOK        = "ok"
	outcomeTransient = "transient"
	outcomeFailed    = "failed"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	Fetches            *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	ExtractionCalls    *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	RecordsAppended    *prometheus.CounterVec
	CandidatesRejected *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Page fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch a single page.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ExtractionCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_calls_total",
			Help:      "Extraction service calls by outcome, retries included.",
		}, []string{"outcome"}),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time for a single extraction service call.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RecordsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_appended_total",
			Help:      "Validated records persisted per target.",
		}, []string{"target"}),
		CandidatesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Candidates that failed validation, by reason.",
		}, []string{"reason"}),
	}
}

// WriteToTextfile writes the gathered metrics in the text exposition format,
// for pickup by the node exporter textfile collector.
func WriteToTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return sift.Errorf(sift.EINTERNAL, "write metrics %s: %v", path, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case sift.IsTransient(err):
		return outcomeTransient
	default:
		return outcomeFailed
	}
}

var (
	_ sift.Fetcher           = (*Fetcher)(nil)
	_ sift.ExtractionService = (*ExtractionService)(nil)
	_ sift.RecordExtractor   = (*RecordExtractor)(nil)
	_ sift.StoreOpener       = (*StoreOpener)(nil)
	_ sift.RecordStore       = (*recordStore)(nil)
)

// Fetcher counts and times fetches.
type Fetcher struct {
	next    sift.Fetcher
	metrics *Metrics
}

// NewFetcher wraps next.
func NewFetcher(next sift.Fetcher, m *Metrics) *Fetcher {
	return &Fetcher{next: next, metrics: m}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	begin := time.Now()
	html, err := f.next.Fetch(ctx, url)
	f.metrics.FetchDuration.Observe(time.Since(begin).Seconds())
	f.metrics.Fetches.WithLabelValues(outcome(err)).Inc()
	return html, err
}

func (f *Fetcher) Close() error {
	return f.next.Close()
}

// ExtractionService counts and times model calls.
type ExtractionService struct {
	next    sift.ExtractionService
	metrics *Metrics
}

// NewExtractionService wraps next.
func NewExtractionService(next sift.ExtractionService, m *Metrics) *ExtractionService {
	return &ExtractionService{next: next, metrics: m}
}

func (s *ExtractionService) Complete(ctx context.Context, req sift.ExtractionRequest) (string, error) {
	begin := time.Now()
	resp, err := s.next.Complete(ctx, req)
	s.metrics.ExtractionDuration.Observe(time.Since(begin).Seconds())
	s.metrics.ExtractionCalls.WithLabelValues(outcome(err)).Inc()
	return resp, err
}

// RecordExtractor counts rejected candidates.
type RecordExtractor struct {
	next    sift.RecordExtractor
	metrics *Metrics
}

// NewRecordExtractor wraps next.
func NewRecordExtractor(next sift.RecordExtractor, m *Metrics) *RecordExtractor {
	return &RecordExtractor{next: next, metrics: m}
}

func (e *RecordExtractor) Extract(ctx context.Context, chunk sift.Chunk, schema *sift.Schema) (*sift.Extraction, error) {
	ext, err := e.next.Extract(ctx, chunk, schema)
	if ext != nil {
		for _, rej := range ext.Rejected() {
			e.metrics.CandidatesRejected.WithLabelValues(string(rej.Code)).Inc()
		}
	}
	return ext, err
}

// StoreOpener counts records appended to the stores it opens.
type StoreOpener struct {
	next    sift.StoreOpener
	metrics *Metrics
}

// NewStoreOpener wraps next.
func NewStoreOpener(next sift.StoreOpener, m *Metrics) *StoreOpener {
	return &StoreOpener{next: next, metrics: m}
}

func (o *StoreOpener) OpenStore(ctx context.Context, target string) (sift.RecordStore, error) {
	store, err := o.next.OpenStore(ctx, target)
	if err != nil {
		return nil, err
	}
	return &recordStore{
		next:     store,
		appended: o.metrics.RecordsAppended.WithLabelValues(target),
	}, nil
}

type recordStore struct {
	next     sift.RecordStore
	appended prometheus.Counter
}

func (s *recordStore) Append(ctx context.Context, rec *sift.ValidatedRecord) error {
	if err := s.next.Append(ctx, rec); err != nil {
		return err
	}
	s.appended.Inc()
	return nil
}

func (s *recordStore) ReadAll(ctx context.Context) ([]*sift.ValidatedRecord, []error, error) {
	return s.next.ReadAll(ctx)
}
