package extract_test

import (
	"testing"

	"github.com/fwojciec/sift/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"records object", `{"records": [{"name": "A"}, {"name": "B"}]}`, 2},
		{"bare array", `[{"name": "A"}]`, 1},
		{"single object", `{"name": "A", "title": "Professor"}`, 1},
		{"json fence", "```json\n{\"records\": [{\"name\": \"A\"}]}\n```", 1},
		{"plain fence", "```\n[{\"name\": \"A\"}]\n```", 1},
		{"leading prose", "Here are the records I found:\n{\"records\": [{\"name\": \"A\"}]}\nLet me know!", 1},
		{"bracket in prose before object", `I found [1] record: {"records": [{"name": "A"}]}`, 1},
		{"trailing commas", `{"records": [{"name": "A",}, {"name": "B"},]}`, 2},
		{"line comments", "{\"records\": [\n{\"url\": \"https://a.edu\"} // first\n]}", 1},
		{"empty response", "   ", 0},
		{"null", "null", 0},
		{"empty array", "[]", 0},
		{"null records", `{"records": null}`, 0},
		{"empty records", `{"records": []}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			items, err := extract.ParseResponse(tt.input)

			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestParseResponse_KeepsNonObjectItems(t *testing.T) {
	t.Parallel()

	items, err := extract.ParseResponse(`["Jane Doe", {"name": "John Roe"}]`)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Jane Doe", items[0])
}

func TestParseResponse_Malformed(t *testing.T) {
	t.Parallel()

	t.Run("no JSON", func(t *testing.T) {
		t.Parallel()

		_, err := extract.ParseResponse("I could not find any faculty on this page.")

		require.ErrorIs(t, err, extract.ErrNoJSON)
	})

	t.Run("truncated object", func(t *testing.T) {
		t.Parallel()

		_, err := extract.ParseResponse(`{"records": [{"name": "A"}, {"name": "B"`)

		require.Error(t, err)
	})

	t.Run("scalar", func(t *testing.T) {
		t.Parallel()

		_, err := extract.ParseResponse("```json\n42\n```")

		require.Error(t, err)
	})
}
