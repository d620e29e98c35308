// Package fs provides file-based record storage: append-only JSONL record
// stores and atomically written canonical output.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fwojciec/sift"
)

// Ensure JSONLStore implements sift.RecordStore at compile time.
var _ sift.RecordStore = (*JSONLStore)(nil)

// maxLineSize bounds a single stored record.
const maxLineSize = 4 << 20

// JSONLStore is an append-only file with one JSON record per line.
//
// The file is opened with O_APPEND and every record is written with a
// single write call, so concurrent appenders never interleave and a crash
// leaves at most a truncated final line. Readers skip such lines, and
// reopening the store terminates one so the next record starts clean.
type JSONLStore struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// OpenJSONLStore opens or creates the store at path, creating parent
// directories as needed.
func OpenJSONLStore(path string) (*JSONLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	if err := terminate(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("repair %s: %w", path, err)
	}
	return &JSONLStore{path: path, f: f}, nil
}

// terminate appends a newline if the file ends inside a line.
func terminate(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

// Path returns the file backing the store.
func (s *JSONLStore) Path() string {
	return s.path
}

// Append writes the record as one line. The record is either fully written
// or not at all.
func (s *JSONLStore) Append(ctx context.Context, rec *sift.ValidatedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return sift.Errorf(sift.EINVALID, "record store %s is closed", s.path)
	}
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return nil
}

// ReadAll returns every well-formed record in append order. Malformed
// lines are returned in skipped.
func (s *JSONLStore) ReadAll(ctx context.Context) ([]*sift.ValidatedRecord, []error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return ReadFile(s.path)
}

// Close closes the underlying file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// ReadFile reads a JSONL record file. Lines that are not valid records are
// returned as *sift.DeduplicationError values in skipped. A missing file
// holds no records.
func ReadFile(path string) (records []*sift.ValidatedRecord, skipped []error, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadRecords(f, path)
}

// ReadRecords reads JSONL records from r. source names r in skip errors.
func ReadRecords(r io.Reader, source string) (records []*sift.ValidatedRecord, skipped []error, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec sift.ValidatedRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			skipped = append(skipped, &sift.DeduplicationError{Source: source, Index: line, Err: err})
			continue
		}
		if err := rec.Validate(); err != nil {
			skipped = append(skipped, &sift.DeduplicationError{Source: source, Index: line, Err: err})
			continue
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return records, skipped, nil
}

// FileName returns the file name used for a target's record store.
// Characters outside [A-Za-z0-9._-] become underscores.
func FileName(target string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, target)
	name = strings.Trim(name, ".")
	if name == "" {
		name = "_"
	}
	return name + ".jsonl"
}
