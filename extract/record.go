package extract

import (
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sift"
)

// Fingerprint returns a stable ID for a record's content and provenance.
// Identical records appended twice share a fingerprint.
func Fingerprint(rec *sift.ValidatedRecord) string {
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	for _, k := range keys {
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(rec.Fields[k])
		_, _ = d.WriteString("\x00")
	}
	_, _ = d.WriteString(rec.Provenance.URL)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(rec.Provenance.FetchedAt.UTC().Format(time.RFC3339Nano))
	return fmt.Sprintf("%016x", d.Sum64())
}

// Promote returns the valid candidates of an extraction as fingerprinted
// records for target, and the validation error of every other candidate.
func Promote(schema *sift.Schema, ext *sift.Extraction, target string) ([]*sift.ValidatedRecord, []error) {
	var (
		records []*sift.ValidatedRecord
		errs    []error
	)
	for i := range ext.Candidates {
		c := &ext.Candidates[i]
		if c.Status != sift.StatusValid {
			if c.Invalid != nil {
				errs = append(errs, c.Invalid)
			}
			continue
		}
		rec, err := schema.Promote(c, target)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rec.ID = Fingerprint(rec)
		records = append(records, rec)
	}
	return records, errs
}
