package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/sift"
)

// Compile-time interface verification.
var (
	_ sift.RecordStore = (*RecordStore)(nil)
	_ sift.StoreOpener = (*StoreOpener)(nil)
)

// RecordStore implements sift.RecordStore for one target using SQLite.
// Records are only ever inserted.
type RecordStore struct {
	db     *DB
	target string
}

// NewRecordStore creates a new RecordStore for target.
func NewRecordStore(db *DB, target string) *RecordStore {
	return &RecordStore{db: db, target: target}
}

// Append inserts the record. A single INSERT is atomic.
func (s *RecordStore) Append(ctx context.Context, rec *sift.ValidatedRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (target, record_id, source_url, fetched_at, chunk, fields)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.target, rec.ID, rec.Provenance.URL, formatTime(rec.Provenance.FetchedAt), rec.ChunkOrdinal, string(fields))
	return err
}

// ReadAll returns the target's records in insertion order. Rows whose
// timestamp or fields cannot be decoded are returned in skipped, indexed
// by their seq.
func (s *RecordStore) ReadAll(ctx context.Context) ([]*sift.ValidatedRecord, []error, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, record_id, source_url, fetched_at, chunk, fields
		FROM records
		WHERE target = ?
		ORDER BY seq
	`, s.target)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		records []*sift.ValidatedRecord
		skipped []error
	)
	for rows.Next() {
		rec := sift.ValidatedRecord{Target: s.target}
		var (
			seq               int
			fetchedAt, fields string
		)
		if err := rows.Scan(&seq, &rec.ID, &rec.Provenance.URL, &fetchedAt, &rec.ChunkOrdinal, &fields); err != nil {
			return nil, nil, err
		}
		if err := decodeRecord(&rec, fetchedAt, fields); err != nil {
			skipped = append(skipped, &sift.DeduplicationError{Source: "records/" + s.target, Index: seq, Err: err})
			continue
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return records, skipped, nil
}

func decodeRecord(rec *sift.ValidatedRecord, fetchedAt, fields string) error {
	var err error
	if rec.Provenance.FetchedAt, err = parseRFC3339(fetchedAt, "fetched_at"); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return fmt.Errorf("failed to decode fields: %w", err)
	}
	return rec.Validate()
}

// Count returns the number of stored records for the target.
func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE target = ?", s.target).Scan(&n)
	return n, err
}

// StoreOpener opens per-target RecordStores in one database.
type StoreOpener struct {
	db *DB
}

// NewStoreOpener creates a new StoreOpener.
func NewStoreOpener(db *DB) *StoreOpener {
	return &StoreOpener{db: db}
}

// OpenStore returns the record store for target.
func (o *StoreOpener) OpenStore(ctx context.Context, target string) (sift.RecordStore, error) {
	if target == "" {
		return nil, sift.Errorf(sift.EINVALID, "target name required")
	}
	return NewRecordStore(o.db, target), nil
}

// Targets returns the names of targets with stored records, sorted.
func (o *StoreOpener) Targets(ctx context.Context) ([]string, error) {
	rows, err := o.db.QueryContext(ctx, "SELECT DISTINCT target FROM records ORDER BY target")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}
