package dedup_test

import (
	"testing"

	"github.com/fwojciec/sift/dedup"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases and collapses whitespace", "  Jane   DOE ", "jane doe"},
		{"strips diacritics", "José García-Núñez", "jose garcia nunez"},
		{"expands abbreviations", "Assoc. Prof., Dept. of Physics", "associate professor department of physics"},
		{"replaces ampersand", "Physics & Astronomy", "physics and astronomy"},
		{"joins apostrophes", "O'Brien", "obrien"},
		{"keeps digits", "Model X-100", "model x 100"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dedup.Normalize(tt.input))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"Dr. Jane Doe", "jane doe"},
		{"Prof. Jane Doe, PhD", "jane doe"},
		{"Jane Doe", "jane doe"},
		{"Mr. John Smith Jr.", "john smith"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dedup.NormalizeName(tt.input))
		})
	}
}
