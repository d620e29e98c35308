package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fwojciec/sift"
)

// Ensure Dir implements sift.StoreOpener at compile time.
var _ sift.StoreOpener = (*Dir)(nil)

// Dir keeps one JSONL record store per target in a directory.
type Dir struct {
	root string

	mu     sync.Mutex
	stores map[string]*JSONLStore
}

// NewDir creates a Dir rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root, stores: make(map[string]*JSONLStore)}
}

// OpenStore returns the store for target. Repeated calls for the same
// target return the same store.
func (d *Dir) OpenStore(ctx context.Context, target string) (sift.RecordStore, error) {
	if target == "" {
		return nil, sift.Errorf(sift.EINVALID, "target name required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.stores[target]; ok {
		return s, nil
	}
	s, err := OpenJSONLStore(d.Path(target))
	if err != nil {
		return nil, err
	}
	d.stores[target] = s
	return s, nil
}

// Path returns the file of the target's record store.
func (d *Dir) Path(target string) string {
	return filepath.Join(d.root, FileName(target))
}

// Files returns the record files in the directory, sorted by name.
func (d *Dir) Files() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(d.root, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Close closes every store opened through d.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for name, s := range d.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(d.stores, name)
	}
	return errors.Join(errs...)
}
