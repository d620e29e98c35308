package sift

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Provenance is the source of a record: the URL it was extracted from and
// when that page was fetched.
type Provenance struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ValidationStatus tags a CandidateRecord as valid or invalid.
type ValidationStatus string

// Validation statuses.
const (
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
)

// CandidateRecord is one record produced by the extraction service for a
// chunk. It is a tagged result: when Status is StatusValid, Values holds the
// normalized fields; when Status is StatusInvalid, Invalid holds the reason.
type CandidateRecord struct {
	Raw          map[string]any
	Provenance   Provenance
	ChunkOrdinal int

	Status  ValidationStatus
	Values  map[string]string
	Invalid *ValidationError
}

// NewCandidate validates raw model output against the schema and returns
// the tagged candidate.
func NewCandidate(s *Schema, raw map[string]any, prov Provenance, ordinal int) CandidateRecord {
	c := CandidateRecord{Raw: raw, Provenance: prov, ChunkOrdinal: ordinal}
	values, verr := s.Check(raw, prov.URL)
	if verr != nil {
		c.Status = StatusInvalid
		c.Invalid = verr
		return c
	}
	c.Status = StatusValid
	c.Values = values
	return c
}

// RejectCandidate returns an invalid candidate for output that could not be
// read as a record at all.
func RejectCandidate(prov Provenance, ordinal int, code ReasonCode, detail string) CandidateRecord {
	return CandidateRecord{
		Provenance:   prov,
		ChunkOrdinal: ordinal,
		Status:       StatusInvalid,
		Invalid:      &ValidationError{Code: code, Detail: detail},
	}
}

// ValidatedRecord is a candidate that passed schema validation.
// It is immutable once created and is the unit persisted to a RecordStore.
type ValidatedRecord struct {
	ID           string
	Target       string
	Fields       map[string]string
	Provenance   Provenance
	ChunkOrdinal int
}

// Promote turns a valid candidate into a ValidatedRecord. Invalid candidates,
// and candidates missing a required field, are never promoted.
func (s *Schema) Promote(c *CandidateRecord, target string) (*ValidatedRecord, error) {
	if c.Status != StatusValid || c.Invalid != nil {
		reason := "unknown"
		if c.Invalid != nil {
			reason = c.Invalid.Error()
		}
		return nil, Errorf(EINVALID, "candidate not valid: %s", reason)
	}
	for _, f := range s.Fields {
		if f.Required && c.Values[f.Name] == "" {
			return nil, Errorf(EINVALID, "candidate missing required field %q", f.Name)
		}
	}
	fields := make(map[string]string, len(c.Values))
	for k, v := range c.Values {
		fields[k] = v
	}
	rec := &ValidatedRecord{
		Target:       target,
		Fields:       fields,
		Provenance:   c.Provenance,
		ChunkOrdinal: c.ChunkOrdinal,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate returns an error if the record contains invalid fields.
func (r *ValidatedRecord) Validate() error {
	if len(r.Fields) == 0 {
		return Errorf(EINVALID, "record has no fields")
	}
	if r.Provenance.URL == "" {
		return Errorf(EINVALID, "record source URL required")
	}
	if r.Provenance.FetchedAt.IsZero() {
		return Errorf(EINVALID, "record fetch time required")
	}
	return nil
}

// MarshalJSON writes the record as one flat object:
// {fields..., "sourceUrl", "fetchedAt", "_id", "_target", "_chunk"}.
func (r ValidatedRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["sourceUrl"] = r.Provenance.URL
	m["fetchedAt"] = r.Provenance.FetchedAt.UTC().Format(time.RFC3339Nano)
	if r.ID != "" {
		m["_id"] = r.ID
	}
	if r.Target != "" {
		m["_target"] = r.Target
	}
	m["_chunk"] = r.ChunkOrdinal
	return json.Marshal(m)
}

// UnmarshalJSON reads the flat object written by MarshalJSON.
func (r *ValidatedRecord) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("record is null")
	}

	out := ValidatedRecord{Fields: make(map[string]string, len(m))}
	for k, raw := range m {
		switch k {
		case "sourceUrl":
			if err := json.Unmarshal(raw, &out.Provenance.URL); err != nil {
				return fmt.Errorf("sourceUrl: %w", err)
			}
		case "fetchedAt":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("fetchedAt: %w", err)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fmt.Errorf("fetchedAt: %w", err)
			}
			out.Provenance.FetchedAt = t
		case "_id":
			if err := json.Unmarshal(raw, &out.ID); err != nil {
				return fmt.Errorf("_id: %w", err)
			}
		case "_target":
			if err := json.Unmarshal(raw, &out.Target); err != nil {
				return fmt.Errorf("_target: %w", err)
			}
		case "_chunk":
			if err := json.Unmarshal(raw, &out.ChunkOrdinal); err != nil {
				return fmt.Errorf("_chunk: %w", err)
			}
		case "sources":
			// Canonical output read back as input; provenance comes from sourceUrl.
		default:
			v, ok, err := fieldText(raw)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			if ok {
				out.Fields[k] = v
			}
		}
	}
	*r = out
	return nil
}

// fieldText decodes a persisted field value. Strings, numbers, and booleans
// are accepted; null is treated as absent.
func fieldText(raw json.RawMessage) (string, bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, err
	}
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, x != "", nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	default:
		return "", false, fmt.Errorf("unsupported value type %T", v)
	}
}

// CanonicalRecord is the merged representative of a group of records that
// denote the same entity.
type CanonicalRecord struct {
	Fields  map[string]string
	Sources []Provenance

	// MergedFrom is the number of stored records merged into this one.
	MergedFrom int
}

// MarshalJSON writes the record as {fields..., "sources": [{url, fetchedAt}...]}.
func (c CanonicalRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		m[k] = v
	}
	sources := make([]map[string]string, 0, len(c.Sources))
	for _, p := range c.Sources {
		sources = append(sources, map[string]string{
			"url":       p.URL,
			"fetchedAt": p.FetchedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	m["sources"] = sources
	return json.Marshal(m)
}

// FieldNames returns the record's field names in sorted order.
func (c *CanonicalRecord) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RecordStore is an append-only sequence of validated records for one
// scrape target. Append is the only mutation; records are never updated or
// removed. Appending the same record twice stores it twice.
type RecordStore interface {
	// Append adds a record. A record is either fully persisted or not at all.
	Append(ctx context.Context, rec *ValidatedRecord) error

	// ReadAll returns every readable record in append order. Stored
	// records that cannot be decoded are returned in skipped as
	// *DeduplicationError values rather than failing the read.
	ReadAll(ctx context.Context) (records []*ValidatedRecord, skipped []error, err error)
}

// StoreOpener opens the record store for a named target.
type StoreOpener interface {
	OpenStore(ctx context.Context, target string) (RecordStore, error)
}

// DedupResult is the outcome of one deduplication pass.
type DedupResult struct {
	Canonical []*CanonicalRecord

	// Input is the number of records considered, including skipped ones.
	Input int

	// Skipped holds one *DeduplicationError per record left out of the pass.
	Skipped []error
}

// Duplicates returns the number of records folded into another record.
func (r *DedupResult) Duplicates() int {
	return r.Input - len(r.Skipped) - len(r.Canonical)
}

// Deduplicator groups records that denote the same entity and merges each
// group into one canonical record.
type Deduplicator interface {
	Deduplicate(records []*ValidatedRecord) (*DedupResult, error)
}

// CanonicalWriter persists the output of a deduplication pass.
type CanonicalWriter interface {
	WriteCanonical(ctx context.Context, name string, records []*CanonicalRecord) error
}
