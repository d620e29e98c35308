package sift_test

import (
	"testing"

	"github.com/fwojciec/sift"
	"github.com/stretchr/testify/assert"
)

func TestFormatRecords(t *testing.T) {
	t.Parallel()

	t.Run("formats single record in schema order", func(t *testing.T) {
		t.Parallel()

		recs := []*sift.ValidatedRecord{{
			Fields:     map[string]string{"title": "Professor", "name": "Jane Doe"},
			Provenance: sift.Provenance{URL: "https://a.edu/people"},
		}}

		result := sift.FormatRecords(sift.FacultySchema(), recs)

		assert.Equal(t, "name: Jane Doe\ntitle: Professor\nsource: https://a.edu/people", result)
	})

	t.Run("appends unknown fields sorted after schema fields", func(t *testing.T) {
		t.Parallel()

		recs := []*sift.ValidatedRecord{{
			Fields:     map[string]string{"zeta": "z", "name": "Jane Doe", "alpha": "a"},
			Provenance: sift.Provenance{URL: "https://a.edu"},
		}}

		result := sift.FormatRecords(sift.FacultySchema(), recs)

		assert.Equal(t, "name: Jane Doe\nalpha: a\nzeta: z\nsource: https://a.edu", result)
	})

	t.Run("separates records with blank line", func(t *testing.T) {
		t.Parallel()

		recs := []*sift.ValidatedRecord{
			{Fields: map[string]string{"name": "A"}, Provenance: sift.Provenance{URL: "u1"}},
			{Fields: map[string]string{"name": "B"}, Provenance: sift.Provenance{URL: "u2"}},
		}

		result := sift.FormatRecords(nil, recs)

		assert.Equal(t, "name: A\nsource: u1\n\nname: B\nsource: u2", result)
	})

	t.Run("returns empty string for empty slice", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, sift.FormatRecords(nil, nil))
	})
}
