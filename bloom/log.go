package bloom

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/fwojciec/sift"
)

// Default sizing of page logs. A log holding more URLs than its capacity
// still works, with a higher false positive rate.
const (
	DefaultCapacity          = 100_000
	DefaultFalsePositiveRate = 0.001
)

// Ensure LogDir implements sift.PageLogStore.
var _ sift.PageLogStore = (*LogDir)(nil)

// LogDir keeps one Filter file per target in a directory.
type LogDir struct {
	dir string

	// Capacity and FalsePositiveRate size logs created for new targets.
	// Existing logs keep the sizing they were created with.
	Capacity          uint
	FalsePositiveRate float64
}

// NewLogDir returns a LogDir rooted at dir with default sizing.
func NewLogDir(dir string) *LogDir {
	return &LogDir{
		dir:               dir,
		Capacity:          DefaultCapacity,
		FalsePositiveRate: DefaultFalsePositiveRate,
	}
}

// Path returns the file holding the target's log.
func (d *LogDir) Path(target string) string {
	return filepath.Join(d.dir, url.PathEscape(target)+".bloom")
}

// OpenPageLog loads the target's log, or returns an empty one if the target
// has none yet.
func (d *LogDir) OpenPageLog(ctx context.Context, target string) (sift.PageLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if target == "" {
		return nil, sift.Errorf(sift.EINVALID, "target name required")
	}

	filter := NewFilter(d.Capacity, d.FalsePositiveRate)
	f, err := os.Open(d.Path(target))
	if errors.Is(err, os.ErrNotExist) {
		return filter, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := filter.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("read page log %s: %w", f.Name(), err)
	}
	return filter, nil
}

// SavePageLog replaces the target's log file. log must have been returned
// by OpenPageLog.
func (d *LogDir) SavePageLog(ctx context.Context, target string, log sift.PageLog) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	filter, ok := log.(*Filter)
	if !ok {
		return sift.Errorf(sift.EINVALID, "page log for %q is not a bloom filter", target)
	}

	path := d.Path(target)
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
	if _, err := filter.WriteTo(bw); err != nil {
		return fmt.Errorf("write page log: %w", err)
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
