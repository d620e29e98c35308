package main_test

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/sift"
	main "github.com/fwojciec/sift/cmd/sift"
	"github.com/fwojciec/sift/fs"
	"github.com/fwojciec/sift/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMain returns a Main with a temporary database, no environment, and a
// model that reports Jane Doe for any chunk mentioning her.
func newMain(t *testing.T) *main.Main {
	t.Helper()

	m := main.NewMain()
	m.DBPath = filepath.Join(t.TempDir(), "sift.db")
	m.Getenv = func(string) string { return "" }
	m.ExtractionService = &mock.ExtractionService{
		CompleteFn: func(_ context.Context, req sift.ExtractionRequest) (string, error) {
			if strings.Contains(req.Text, "Jane Doe") {
				return `[{"name": "Jane Doe", "title": "Professor", "affiliation": "Physics"}]`, nil
			}
			return `[]`, nil
		},
	}
	return m
}

const facultyPage = `<!DOCTYPE html>
<html>
<head><title>Physics Faculty</title></head>
<body>
<nav><a href="/">Home</a></nav>
<div class="person"><h3>Jane Doe</h3><p>Professor of Physics</p></div>
<div class="person"><h3>John Roe</h3><p>Associate Professor of Physics</p></div>
<div class="person"><h3>Ann Poe</h3><p>Lecturer in Physics</p></div>
</body>
</html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/faculty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(facultyPage))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func countLines(t *testing.T, path string) int {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var n int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("returns error without command", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), nil, stdout, stderr)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command specified")
		assert.Contains(t, stdout.String(), "scrape")
	})

	t.Run("prints help", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"--help"}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "dedup")
	})
}

func TestCmdSchemas(t *testing.T) {
	t.Parallel()

	t.Run("lists built-in schemas", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"schemas"}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "faculty")
		assert.Contains(t, stdout.String(), "product")
	})

	t.Run("prints schema as YAML", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"schemas", "product"}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "name: product")
		assert.Contains(t, stdout.String(), "type: price")
	})

	t.Run("reads schema file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "recipes.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`name: recipes
fields:
  - name: title
    type: string
    required: true
  - name: minutes
    type: number
blockingKey: [title]
`), 0o644))
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"schemas", path}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "name: recipes")
		assert.Contains(t, stdout.String(), "name: minutes")
	})

	t.Run("rejects unknown schema", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"schemas", "recipes"}, stdout, stderr)

		assert.Equal(t, sift.ENOTFOUND, sift.ErrorCode(err))
		assert.Contains(t, stderr.String(), `schema "recipes" not found`)
	})
}

func TestCmdScrape(t *testing.T) {
	t.Parallel()

	t.Run("requires API key", func(t *testing.T) {
		t.Parallel()

		m := newMain(t)
		m.ExtractionService = nil
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"scrape", "site-a", "https://a.edu/faculty"}, stdout, stderr)

		assert.Equal(t, sift.ECONFIG, sift.ErrorCode(err))
		assert.Contains(t, stderr.String(), "aistudio.google.com")
	})

	t.Run("rejects invalid threshold", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{
			"scrape", "site-a", "https://a.edu/faculty", "--threshold", "1.5", "--out", t.TempDir(),
		}, stdout, stderr)

		assert.Equal(t, sift.ECONFIG, sift.ErrorCode(err))
	})

	t.Run("rejects overlap too large for chunk size", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{
			"scrape", "site-a", "https://a.edu/faculty", "--chunk-size", "100", "--chunk-overlap", "80", "--out", t.TempDir(),
		}, stdout, stderr)

		assert.Equal(t, sift.ECONFIG, sift.ErrorCode(err))
	})

	t.Run("requires targets", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"scrape", "--out", t.TempDir()}, stdout, stderr)

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
		assert.Contains(t, stderr.String(), "no targets")
	})

	t.Run("extracts, stores, and deduplicates two targets", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		out := t.TempDir()
		targets := filepath.Join(t.TempDir(), "targets.yaml")
		require.NoError(t, os.WriteFile(targets, []byte("targets:\n  - name: site-b\n    urls: [\""+srv.URL+"/faculty\"]\n"), 0o644))
		metrics := filepath.Join(t.TempDir(), "sift.prom")
		m := newMain(t)
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := m.Run(context.Background(), []string{
			"--metrics-file", metrics,
			"scrape", "site-a", srv.URL + "/faculty",
			"--targets", targets,
			"--out", out,
			"--rps", "0",
		}, stdout, stderr)

		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "site-a: success, 1/1 pages, 1 records")
		assert.Contains(t, stdout.String(), "site-b: success, 1/1 pages, 1 records")
		assert.Contains(t, stdout.String(), "canonical: 2 records in, 1 canonical, 1 duplicates removed")
		assert.Equal(t, 1, countLines(t, filepath.Join(out, "records", "site-a.jsonl")))
		assert.Equal(t, 1, countLines(t, filepath.Join(out, "records", "site-b.jsonl")))
		assert.Equal(t, 1, countLines(t, filepath.Join(out, "canonical", "canonical.jsonl")))

		data, err := os.ReadFile(metrics)
		require.NoError(t, err)
		assert.Contains(t, string(data), `sift_records_appended_total{target="site-a"} 1`)

		stdout.Reset()
		err = m.Run(context.Background(), []string{"runs"}, stdout, stderr)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "faculty")

		stdout.Reset()
		err = m.Run(context.Background(), []string{"records", "site-a", "--out", out}, stdout, stderr)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "name: Jane Doe")
		assert.Contains(t, stdout.String(), "source: "+srv.URL+"/faculty")
	})

	t.Run("stores records in sqlite", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		m := newMain(t)
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := m.Run(context.Background(), []string{
			"scrape", "site-a", srv.URL + "/faculty",
			"--store", "sqlite",
			"--out", t.TempDir(),
			"--rps", "0",
		}, stdout, stderr)
		require.NoError(t, err, stderr.String())

		stdout.Reset()
		err = m.Run(context.Background(), []string{"records", "site-a", "--store", "sqlite"}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "name: Jane Doe")
	})

	t.Run("resumes pages finished by an earlier run", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		out := t.TempDir()
		m := newMain(t)
		args := []string{"scrape", "site-a", srv.URL + "/faculty", "--out", out, "--rps", "0", "--resume"}
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		require.NoError(t, m.Run(context.Background(), args, stdout, stderr), stderr.String())
		assert.FileExists(t, filepath.Join(out, "seen", "site-a.bloom"))

		stdout.Reset()
		err := m.Run(context.Background(), args, stdout, stderr)

		require.NoError(t, err, stderr.String())
		assert.Contains(t, stdout.String(), "resume "+srv.URL+"/faculty")
		assert.Contains(t, stdout.String(), "site-a: success, 0/0 pages, 0 records, 1 resumed")
		assert.Equal(t, 1, countLines(t, filepath.Join(out, "records", "site-a.jsonl")))
	})

	t.Run("fails when every target fails", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{
			"scrape", "site-a", srv.URL + "/missing",
			"--out", t.TempDir(),
			"--rps", "0",
		}, stdout, stderr)

		require.Error(t, err)
		assert.Contains(t, stdout.String(), "site-a: failure, 0/1 pages")
		assert.Contains(t, stderr.String(), "skip")
	})
}

func TestCmdDedup(t *testing.T) {
	t.Parallel()

	writeRecords := func(t *testing.T, dir, target string, recs ...*sift.ValidatedRecord) string {
		t.Helper()
		d := fs.NewDir(dir)
		store, err := d.OpenStore(context.Background(), target)
		require.NoError(t, err)
		for _, r := range recs {
			require.NoError(t, store.Append(context.Background(), r))
		}
		require.NoError(t, d.Close())
		return d.Path(target)
	}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	jane := func(url string) *sift.ValidatedRecord {
		return &sift.ValidatedRecord{
			ID:         "id-" + url,
			Target:     "t",
			Fields:     map[string]string{"name": "Jane Doe", "title": "Professor", "affiliation": "Physics"},
			Provenance: sift.Provenance{URL: url, FetchedAt: at},
		}
	}

	t.Run("merges records across files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a := writeRecords(t, dir, "a", jane("https://a.edu/people"))
		b := writeRecords(t, dir, "b", jane("https://b.edu/faculty"))
		out := filepath.Join(dir, "out.jsonl")
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"dedup", a, b, "--out", out}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "2 records in, 1 canonical, 1 duplicates removed")
		assert.Equal(t, 1, countLines(t, out))
	})

	t.Run("reports malformed lines as skipped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a := writeRecords(t, dir, "a", jane("https://a.edu/people"))
		f, err := os.OpenFile(a, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("{\"truncated\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		out := filepath.Join(dir, "out.jsonl")
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err = newMain(t).Run(context.Background(), []string{"dedup", a, "--out", out}, stdout, stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "2 records in, 1 canonical, 0 duplicates removed, 1 skipped")
	})

	t.Run("collapses on key field", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		r1 := jane("https://a.edu/people")
		r2 := jane("https://a.edu/people")
		r2.Fields = map[string]string{"name": "J. Doe", "title": "Professor", "profile_url": "https://a.edu/jdoe"}
		r1.Fields["profile_url"] = "https://a.edu/jdoe"
		a := writeRecords(t, dir, "a", r1, r2)
		out := filepath.Join(dir, "out.jsonl")
		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := newMain(t).Run(context.Background(), []string{"dedup", a, "--out", out, "--key-field", "profile_url"}, stdout, stderr)

		require.NoError(t, err)
		assert.Equal(t, 1, countLines(t, out))
	})
}
