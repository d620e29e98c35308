package sift

import (
	"sort"
	"strings"
)

// FormatRecords formats records for display.
// Fields appear in schema order, then any fields unknown to the schema in
// sorted order. Each record ends with its source URL; records are separated
// by blank lines.
func FormatRecords(s *Schema, records []*ValidatedRecord) string {
	if len(records) == 0 {
		return ""
	}

	parts := make([]string, 0, len(records))
	for _, rec := range records {
		var b strings.Builder
		for _, name := range fieldOrder(s, rec.Fields) {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(rec.Fields[name])
			b.WriteString("\n")
		}
		b.WriteString("source: ")
		b.WriteString(rec.Provenance.URL)
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}

func fieldOrder(s *Schema, fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	known := make(map[string]bool)
	if s != nil {
		for _, f := range s.Fields {
			known[f.Name] = true
			if _, ok := fields[f.Name]; ok {
				names = append(names, f.Name)
			}
		}
	}
	var rest []string
	for k := range fields {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
