// Package dedup reconciles records that denote the same entity.
package dedup

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/fwojciec/sift"
)

// Default configuration values.
const (
	DefaultThreshold      = 0.85
	DefaultPriceTolerance = 0.01
)

// Ensure Deduplicator implements sift.Deduplicator.
var _ sift.Deduplicator = (*Deduplicator)(nil)

// Config controls how records are grouped.
type Config struct {
	// Schema supplies field types. Fields it does not define compare as
	// strings. May be nil.
	Schema *sift.Schema

	// BlockingFields partition records before pairwise comparison. Records
	// with different blocking keys are never merged. When empty, every
	// record is compared with every other.
	BlockingFields []string

	// NameFields have honorifics removed during normalization.
	NameFields []string

	// Threshold is the minimum mean field similarity for two records to be
	// treated as the same entity.
	Threshold float64

	// PriceTolerance is the relative difference under which two numbers or
	// prices are considered equal.
	PriceTolerance float64

	// KeyField switches to exact mode: records are merged when this field
	// is equal, and no similarity scoring is done.
	KeyField string
}

// DefaultConfig returns the configuration for records of the given schema.
func DefaultConfig(s *sift.Schema) Config {
	c := Config{
		Schema:         s,
		NameFields:     []string{"name"},
		Threshold:      DefaultThreshold,
		PriceTolerance: DefaultPriceTolerance,
	}
	if s != nil {
		c.BlockingFields = append([]string(nil), s.BlockingKey...)
	}
	return c
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return sift.Errorf(sift.EINVALID, "threshold must be in (0, 1], got %v", c.Threshold)
	}
	if c.PriceTolerance < 0 {
		return sift.Errorf(sift.EINVALID, "price tolerance must not be negative")
	}
	return nil
}

// Deduplicator groups records by blocking key, links pairs whose similarity
// reaches the threshold, and merges each connected group.
type Deduplicator struct {
	config Config
	types  map[string]sift.FieldType
	names  map[string]bool
	metric strutil.StringMetric
}

// New returns a Deduplicator. Zero Threshold and PriceTolerance take their
// defaults.
func New(config Config) *Deduplicator {
	if config.Threshold == 0 {
		config.Threshold = DefaultThreshold
	}
	if config.PriceTolerance == 0 {
		config.PriceTolerance = DefaultPriceTolerance
	}
	d := &Deduplicator{
		config: config,
		types:  make(map[string]sift.FieldType),
		names:  make(map[string]bool),
		metric: metrics.NewJaroWinkler(),
	}
	if config.Schema != nil {
		for _, f := range config.Schema.Fields {
			d.types[f.Name] = f.Type
		}
	}
	for _, name := range config.NameFields {
		d.names[name] = true
	}
	return d
}

// entry is a record admitted to the pass together with its normalized
// field values.
type entry struct {
	rec   *sift.ValidatedRecord
	index int
	norm  map[string]string
}

// Deduplicate groups records and returns one canonical record per group.
// Records that fail validation are skipped and reported. The result depends
// only on the input order and contents.
func (d *Deduplicator) Deduplicate(records []*sift.ValidatedRecord) (*sift.DedupResult, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	result := &sift.DedupResult{Input: len(records)}
	entries := make([]entry, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			result.Skipped = append(result.Skipped, &sift.DeduplicationError{
				Source: "input", Index: i, Err: sift.Errorf(sift.EINVALID, "nil record"),
			})
			continue
		}
		if err := rec.Validate(); err != nil {
			source := rec.Target
			if source == "" {
				source = "input"
			}
			result.Skipped = append(result.Skipped, &sift.DeduplicationError{Source: source, Index: i, Err: err})
			continue
		}
		entries = append(entries, entry{rec: rec, index: i, norm: d.normalizeFields(rec.Fields)})
	}

	uf := newUnionFind(len(entries))
	for _, block := range d.blocks(entries) {
		for a := 0; a < len(block); a++ {
			for b := a + 1; b < len(block); b++ {
				i, j := block[a], block[b]
				if d.config.KeyField != "" || d.score(entries[i], entries[j]) >= d.config.Threshold {
					uf.union(i, j)
				}
			}
		}
	}

	// Roots are the smallest member index, so visiting roots in ascending
	// order yields groups in order of their first record.
	groups := make(map[int][]int)
	var roots []int
	for i := range entries {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	result.Canonical = make([]*sift.CanonicalRecord, 0, len(roots))
	for _, r := range roots {
		members := make([]entry, 0, len(groups[r]))
		for _, i := range groups[r] {
			members = append(members, entries[i])
		}
		result.Canonical = append(result.Canonical, merge(members))
	}
	return result, nil
}

func (d *Deduplicator) normalizeFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = d.normalize(k, v)
	}
	return out
}

func (d *Deduplicator) normalize(field, value string) string {
	switch d.types[field] {
	case sift.FieldList:
		items := strings.Split(value, sift.ListSeparator)
		for i := range items {
			items[i] = Normalize(items[i])
		}
		sort.Strings(items)
		return strings.Join(strutil.UniqueSlice(items), sift.ListSeparator)
	case sift.FieldURL, sift.FieldEmail:
		return strings.ToLower(strings.TrimSpace(value))
	}
	if d.names[field] {
		return NormalizeName(value)
	}
	return Normalize(value)
}

// blocks partitions entry indexes by blocking key, preserving input order
// within each block. Entries with an empty key each form their own block.
func (d *Deduplicator) blocks(entries []entry) [][]int {
	var out [][]int
	byKey := make(map[string]int)
	for i, e := range entries {
		key, ok := d.blockingKey(e)
		if !ok {
			out = append(out, []int{i})
			continue
		}
		if b, seen := byKey[key]; seen {
			out[b] = append(out[b], i)
			continue
		}
		byKey[key] = len(out)
		out = append(out, []int{i})
	}
	return out
}

func (d *Deduplicator) blockingKey(e entry) (string, bool) {
	if d.config.KeyField != "" {
		v := strings.TrimSpace(e.rec.Fields[d.config.KeyField])
		return v, v != ""
	}
	if len(d.config.BlockingFields) == 0 {
		return "", true
	}
	parts := make([]string, len(d.config.BlockingFields))
	empty := true
	for i, f := range d.config.BlockingFields {
		parts[i] = e.norm[f]
		if parts[i] != "" {
			empty = false
		}
	}
	if empty {
		return "", false
	}
	return strings.Join(parts, "\x1f"), true
}

// score returns the mean similarity over the fields both entries carry.
// URL fields are ignored because they identify the page a record came from
// as often as the entity itself. Entries with no comparable field score 0.
func (d *Deduplicator) score(a, b entry) float64 {
	var sum float64
	var n int
	for _, name := range sortedKeys(a.norm) {
		av := a.norm[name]
		bv, ok := b.norm[name]
		if !ok || av == "" || bv == "" {
			continue
		}
		if d.types[name] == sift.FieldURL {
			continue
		}
		sum += d.fieldSimilarity(name, a.rec.Fields[name], b.rec.Fields[name], av, bv)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (d *Deduplicator) fieldSimilarity(name, rawA, rawB, a, b string) float64 {
	switch d.types[name] {
	case sift.FieldNumber, sift.FieldPrice:
		x, okA := sift.ParsePrice(rawA)
		y, okB := sift.ParsePrice(rawB)
		if okA && okB {
			if withinTolerance(x, y, d.config.PriceTolerance) {
				return 1
			}
			return 0
		}
	case sift.FieldList:
		return jaccard(strings.Split(a, sift.ListSeparator), strings.Split(b, sift.ListSeparator))
	case sift.FieldEmail, sift.FieldEnum:
		if a == b {
			return 1
		}
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, d.metric)
}

func withinTolerance(x, y, tol float64) bool {
	diff := math.Abs(x - y)
	scale := math.Max(math.Abs(x), math.Abs(y))
	if scale == 0 {
		return diff == 0
	}
	return diff/scale <= tol
}

// jaccard returns the overlap of two item sets.
func jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	union := len(set)
	var inter int
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// merge builds the canonical record for a group given in input order.
func merge(members []entry) *sift.CanonicalRecord {
	c := &sift.CanonicalRecord{
		Fields:     make(map[string]string),
		MergedFrom: len(members),
	}

	names := make(map[string]bool)
	for _, m := range members {
		for k := range m.rec.Fields {
			names[k] = true
		}
	}
	for _, name := range sortedKeys(names) {
		if v, ok := pick(members, name); ok {
			c.Fields[name] = v
		}
	}

	type sourceKey struct {
		url string
		at  int64
	}
	seen := make(map[sourceKey]bool)
	for _, m := range members {
		p := m.rec.Provenance
		k := sourceKey{p.URL, p.FetchedAt.UnixNano()}
		if seen[k] {
			continue
		}
		seen[k] = true
		c.Sources = append(c.Sources, p)
	}
	return c
}

// pick chooses the value of one field for a group: the most frequent
// normalized value, ties broken by the most recent fetch and then by input
// order. Within the winning value the same rule picks the spelling.
func pick(members []entry, field string) (string, bool) {
	var norms, raws []string
	var idx []int
	for i, m := range members {
		raw := m.rec.Fields[field]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		norms = append(norms, m.norm[field])
		raws = append(raws, raw)
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return "", false
	}

	win := vote(members, idx, norms)
	var inClass []int
	var spellings []string
	for j, i := range idx {
		if norms[j] == win {
			inClass = append(inClass, i)
			spellings = append(spellings, raws[j])
		}
	}
	return vote(members, inClass, spellings), true
}

// vote returns the most frequent of values, where values[j] belongs to
// members[idx[j]]. Ties go to the value with the latest fetch, then to the
// value seen first.
func vote(members []entry, idx []int, values []string) string {
	type tally struct {
		count  int
		latest time.Time
	}
	tallies := make(map[string]*tally)
	var order []string
	for j, v := range values {
		at := members[idx[j]].rec.Provenance.FetchedAt
		t, ok := tallies[v]
		if !ok {
			tallies[v] = &tally{count: 1, latest: at}
			order = append(order, v)
			continue
		}
		t.count++
		if at.After(t.latest) {
			t.latest = at
		}
	}

	win := order[0]
	for _, v := range order[1:] {
		t, w := tallies[v], tallies[win]
		if t.count > w.count || (t.count == w.count && t.latest.After(w.latest)) {
			win = v
		}
	}
	return win
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// unionFind tracks connected groups. The root of a group is always its
// smallest index.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra < rb:
		u.parent[rb] = ra
	case rb < ra:
		u.parent[ra] = rb
	}
}
