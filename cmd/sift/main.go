package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/bloom"
	"github.com/fwojciec/sift/chunk"
	"github.com/fwojciec/sift/crawl"
	"github.com/fwojciec/sift/dedup"
	"github.com/fwojciec/sift/extract"
	"github.com/fwojciec/sift/fs"
	"github.com/fwojciec/sift/gemini"
	"github.com/fwojciec/sift/goquery"
	"github.com/fwojciec/sift/htmltomarkdown"
	sifthttp "github.com/fwojciec/sift/http"
	siftprom "github.com/fwojciec/sift/prometheus"
	"github.com/fwojciec/sift/readability"
	"github.com/fwojciec/sift/rod"
	siftslog "github.com/fwojciec/sift/slog"
	"github.com/fwojciec/sift/sqlite"
	"github.com/fwojciec/sift/trafilatura"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run(); --db overrides it.
	DBPath string

	// SQLite database holding runs and, with --store sqlite, records.
	DB *sqlite.DB

	// Getenv reads the environment. Defaults to os.Getenv.
	Getenv func(string) string

	// ExtractionService replaces the Gemini service when set.
	ExtractionService sift.ExtractionService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
		Getenv: os.Getenv,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sift"),
		kong.Description("Extract structured records from listing pages and deduplicate them"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Configuration(kong.JSON, "~/.sift/config.json"),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sift --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	metrics := siftprom.NewMetrics(reg)
	if cli.MetricsFile != "" {
		defer func() {
			if err := siftprom.WriteToTextfile(cli.MetricsFile, reg); err != nil {
				deps.Logger.Error("write metrics", "path", cli.MetricsFile, "err", err)
			}
		}()
	}

	if cmd == "scrape" || cmd == "runs" || cmd == "records" {
		if cli.DB != "" {
			m.DBPath = cli.DB
		}
		m.DB = sqlite.NewDB(m.DBPath)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set SIFT_DB or --db to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
		}
		defer m.Close()

		deps.DB = m.DB
		deps.Runs = sqlite.NewRunService(m.DB)
	}

	if cmd == "scrape" {
		deps.Sitemaps = siftslog.NewLoggingSitemapService(sifthttp.NewSitemapService(nil), deps.Logger)

		crawler, cleanup, err := m.newCrawler(ctx, &cli.Scrape, deps, metrics)
		if err != nil {
			return err
		}
		defer cleanup()
		deps.Crawler = crawler
	}

	return kongCtx.Run(deps)
}

// newCrawler wires the scrape pipeline. The returned cleanup releases the
// fetcher and record files.
func (m *Main) newCrawler(ctx context.Context, c *ScrapeCmd, deps *Dependencies, metrics *siftprom.Metrics) (*crawl.Crawler, func(), error) {
	logger := deps.Logger
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	schema, err := loadSchema(c.Schema)
	if err != nil {
		return nil, nil, err
	}

	service, err := m.extractionService(ctx, c.Model, deps.Stderr)
	if err != nil {
		return nil, nil, err
	}
	service = siftprom.NewExtractionService(siftslog.NewLoggingExtractionService(service, logger), metrics)

	var fetcher sift.Fetcher
	if c.Browser {
		f, err := rod.NewFetcher(rod.WithFetchTimeout(c.Timeout), rod.WithMaxLoadMoreClicks(c.LoadMore))
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
			return nil, nil, fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	} else {
		fetcher = sifthttp.NewFetcher(sifthttp.WithTimeout(c.Timeout))
	}
	fetcher = siftprom.NewFetcher(siftslog.NewLoggingFetcher(fetcher, logger), metrics)
	closers = append(closers, fetcher.Close)

	splitter := &chunk.Splitter{MaxSize: c.ChunkSize, Overlap: c.ChunkOverlap}
	if err := splitter.Validate(); err != nil {
		cleanup()
		return nil, nil, configError(err)
	}

	dedupConfig := dedup.DefaultConfig(schema)
	dedupConfig.Threshold = c.Threshold
	if err := dedupConfig.Validate(); err != nil {
		cleanup()
		return nil, nil, configError(err)
	}

	var stores sift.StoreOpener
	switch c.Store {
	case "sqlite":
		stores = sqlite.NewStoreOpener(deps.DB)
	default:
		dir := fs.NewDir(filepath.Join(c.Out, "records"))
		closers = append(closers, dir.Close)
		stores = dir
	}
	stores = siftprom.NewStoreOpener(siftslog.NewLoggingStoreOpener(stores, logger), metrics)

	var extractor sift.RecordExtractor = extract.NewClient(service, extract.Config{
		MaxAttempts: c.MaxAttempts,
		Timeout:     c.CallTimeout,
	})
	extractor = siftprom.NewRecordExtractor(siftslog.NewLoggingRecordExtractor(extractor, logger), metrics)

	crawler := &crawl.Crawler{
		Loader: &crawl.Loader{
			Fetcher: fetcher,
			Extractor: goquery.NewListingExtractor(schema.Keywords,
				trafilatura.NewExtractor(trafilatura.WithFallback(readability.NewExtractor()))),
			Converter: htmltomarkdown.NewConverter(),
			Limiter:   crawl.NewDomainLimiter(c.RPS),
			OnRetry: func(url string, attempt int, err error) {
				logger.Warn("retry fetch", "url", url, "attempt", attempt, "err", err)
			},
		},
		Chunker:        splitter,
		Extractor:      extractor,
		Stores:         stores,
		Schema:         schema,
		Runs:           deps.Runs,
		Deduplicator:   dedup.New(dedupConfig),
		Canonical:      fs.NewCanonicalWriter(filepath.Join(c.Out, "canonical")),
		Concurrency:    c.Concurrency,
		DedupPerTarget: c.PerTarget,
	}

	if c.Resume {
		crawler.PageLogs = bloom.NewLogDir(filepath.Join(c.Out, "seen"))
	}

	if c.CountTokens {
		tc, err := gemini.NewTokenCounter(tokenizerModel)
		if err != nil {
			logger.Warn("token counting disabled", "err", err)
		} else {
			crawler.TokenCounter = tc
		}
	}

	if err := crawler.Validate(); err != nil {
		cleanup()
		return nil, nil, err
	}
	return crawler, cleanup, nil
}

// extractionService returns the injected service or connects to Gemini.
func (m *Main) extractionService(ctx context.Context, model string, stderr io.Writer) (sift.ExtractionService, error) {
	if m.ExtractionService != nil {
		return m.ExtractionService, nil
	}

	apiKey := m.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(stderr, "Hint: Get an API key at https://aistudio.google.com/apikey")
		return nil, sift.Errorf(sift.ECONFIG, "GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	return gemini.NewExtractionService(client, model), nil
}

// errorText returns the message of an application error, or the full
// error text otherwise.
func errorText(err error) string {
	if sift.ErrorCode(err) == sift.EINTERNAL {
		return err.Error()
	}
	return sift.ErrorMessage(err)
}

// configError reports an invalid flag value as a configuration error.
func configError(err error) error {
	return sift.Errorf(sift.ECONFIG, "%s", sift.ErrorMessage(err))
}

// tokenizerModel is used for local token counting.
const tokenizerModel = "gemini-2.5-flash"

func defaultDBPath() string {
	if path := os.Getenv("SIFT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sift.db"
	}
	dir := filepath.Join(home, ".sift")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "sift.db")
}
