package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/crawl"
	"github.com/fwojciec/sift/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	DB       *sqlite.DB
	Runs     sift.RunService
	Sitemaps sift.SitemapService
	Crawler  *crawl.Crawler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config      kong.ConfigFlag `help:"Load flag defaults from a JSON file"`
	DB          string          `name:"db" help:"Path of the run database (default $SIFT_DB or ~/.sift/sift.db)"`
	Verbose     bool            `short:"v" help:"Log debug output to stderr"`
	MetricsFile string          `name:"metrics-file" help:"Write Prometheus metrics to this file on exit"`

	Scrape  ScrapeCmd  `cmd:"" help:"Extract records from target pages and deduplicate them"`
	Dedup   DedupCmd   `cmd:"" help:"Deduplicate record files into one canonical file"`
	Records RecordsCmd `cmd:"" help:"Show the records stored for a target"`
	Runs    RunsCmd    `cmd:"" help:"List runs or show one run's target results"`
	Schemas SchemasCmd `cmd:"" help:"List built-in schemas or print one"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	Target  string   `arg:"" optional:"" help:"Target name"`
	URLs    []string `arg:"" optional:"" name:"url" help:"Page URLs of the target"`
	Targets string   `name:"targets" type:"existingfile" help:"YAML file listing targets"`
	Sitemap string   `help:"Sitemap whose URLs are added to the target"`
	Filter  []string `short:"F" help:"Include sitemap URLs matching regex (repeatable)"`

	Schema string `short:"s" default:"faculty" help:"Built-in schema name or YAML schema file"`
	Out    string `short:"o" default:"sift-out" help:"Output directory for record and canonical files"`
	Store  string `default:"jsonl" enum:"jsonl,sqlite" help:"Record store backend (jsonl, sqlite)"`

	Browser     bool          `help:"Fetch pages with a headless browser"`
	LoadMore    int           `name:"load-more" default:"10" help:"Maximum load-more clicks per page in browser mode"`
	Concurrency int           `short:"c" default:"4" help:"Targets processed at once"`
	RPS         float64       `name:"rps" default:"1" help:"Requests per second per host (0 disables)"`
	Timeout     time.Duration `short:"t" default:"10s" help:"Fetch timeout per page"`

	ChunkSize    int           `name:"chunk-size" default:"8000" help:"Maximum chunk size in bytes"`
	ChunkOverlap int           `name:"chunk-overlap" default:"400" help:"Bytes shared by consecutive chunks"`
	Model        string        `help:"Gemini model used for extraction"`
	MaxAttempts  int           `name:"max-attempts" default:"3" help:"Extraction attempts per chunk"`
	CallTimeout  time.Duration `name:"call-timeout" default:"60s" help:"Timeout of one extraction call"`
	CountTokens  bool          `name:"count-tokens" help:"Count tokens sent for extraction"`

	Threshold float64 `default:"0.85" help:"Similarity threshold for merging records"`
	PerTarget bool    `name:"per-target" help:"Deduplicate each target on its own"`

	Resume bool `help:"Skip pages fully processed by an earlier run into the same output directory"`
}

// DedupCmd is the "dedup" subcommand.
type DedupCmd struct {
	Files     []string `arg:"" type:"existingfile" help:"JSONL record files"`
	Schema    string   `short:"s" default:"faculty" help:"Built-in schema name or YAML schema file"`
	Out       string   `short:"o" required:"" help:"Canonical output file"`
	KeyField  string   `name:"key-field" help:"Collapse records sharing this field exactly instead of fuzzy matching"`
	Threshold float64  `default:"0.85" help:"Similarity threshold for merging records"`
}

// RecordsCmd is the "records" subcommand.
type RecordsCmd struct {
	Target string `arg:"" help:"Target name"`
	Schema string `short:"s" default:"faculty" help:"Built-in schema name or YAML schema file"`
	Out    string `short:"o" default:"sift-out" help:"Output directory used by scrape"`
	Store  string `default:"jsonl" enum:"jsonl,sqlite" help:"Record store backend (jsonl, sqlite)"`
	Limit  int    `short:"n" help:"Show at most this many records"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	ID    string `arg:"" optional:"" help:"Run ID"`
	Limit int    `short:"n" default:"20" help:"Show at most this many runs"`
}

// SchemasCmd is the "schemas" subcommand.
type SchemasCmd struct {
	Name string `arg:"" optional:"" help:"Built-in schema name or YAML schema file to print"`
}
