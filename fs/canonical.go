package fs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/sift"
)

// Ensure CanonicalWriter implements sift.CanonicalWriter at compile time.
var _ sift.CanonicalWriter = (*CanonicalWriter)(nil)

// CanonicalWriter writes deduplicated records as JSONL files in a directory.
// Each file is written to a temporary name and renamed into place, so
// readers see either the previous output or the complete new one.
type CanonicalWriter struct {
	dir string
}

// NewCanonicalWriter creates a CanonicalWriter writing into dir.
func NewCanonicalWriter(dir string) *CanonicalWriter {
	return &CanonicalWriter{dir: dir}
}

// Path returns the file written for name.
func (w *CanonicalWriter) Path(name string) string {
	return filepath.Join(w.dir, FileName(name))
}

// WriteCanonical replaces the output file for name with records.
func (w *CanonicalWriter) WriteCanonical(ctx context.Context, name string, records []*sift.CanonicalRecord) error {
	if name == "" {
		return sift.Errorf(sift.EINVALID, "output name required")
	}
	return WriteFileAtomic(ctx, w.Path(name), records)
}

// WriteFileAtomic writes records as JSONL to path via a temporary file in
// the same directory.
func WriteFileAtomic(ctx context.Context, path string, records []*sift.CanonicalRecord) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode canonical record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
