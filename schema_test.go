package sift_test

import (
	"testing"

	"github.com/fwojciec/sift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate(t *testing.T) {
	t.Parallel()

	t.Run("built-in schemas are valid", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, sift.FacultySchema().Validate())
		require.NoError(t, sift.ProductSchema().Validate())
	})

	t.Run("rejects reserved field name", func(t *testing.T) {
		t.Parallel()

		s := &sift.Schema{Name: "x", Fields: []sift.Field{{Name: "sourceUrl", Type: sift.FieldString}}}

		err := s.Validate()

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
	})

	t.Run("rejects duplicate field", func(t *testing.T) {
		t.Parallel()

		s := &sift.Schema{Name: "x", Fields: []sift.Field{
			{Name: "a", Type: sift.FieldString},
			{Name: "a", Type: sift.FieldNumber},
		}}

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(s.Validate()))
	})

	t.Run("rejects enum without values", func(t *testing.T) {
		t.Parallel()

		s := &sift.Schema{Name: "x", Fields: []sift.Field{{Name: "a", Type: sift.FieldEnum}}}

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(s.Validate()))
	})

	t.Run("rejects undefined blocking key", func(t *testing.T) {
		t.Parallel()

		s := &sift.Schema{
			Name:        "x",
			Fields:      []sift.Field{{Name: "a", Type: sift.FieldString}},
			BlockingKey: []string{"b"},
		}

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(s.Validate()))
	})
}

func TestSchema_Check(t *testing.T) {
	t.Parallel()

	t.Run("normalizes faculty record", func(t *testing.T) {
		t.Parallel()

		raw := map[string]any{
			"Name":               " Jane Doe ",
			"title":              "Professor",
			"email":              "Jane.Doe@A.EDU",
			"profile_url":        "/people/jdoe",
			"research interests": []any{"NLP", " ", "Robotics"},
			"extra":              "ignored",
		}

		values, verr := sift.FacultySchema().Check(raw, "https://a.edu/faculty")

		require.Nil(t, verr)
		assert.Equal(t, map[string]string{
			"name":               "Jane Doe",
			"title":              "Professor",
			"email":              "jane.doe@a.edu",
			"profile_url":        "https://a.edu/people/jdoe",
			"research_interests": "NLP; Robotics",
		}, values)
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		_, verr := sift.FacultySchema().Check(map[string]any{"name": "Jane Doe"}, "")

		require.NotNil(t, verr)
		assert.Equal(t, "title", verr.Field)
		assert.Equal(t, sift.ReasonMissingField, verr.Code)
	})

	t.Run("empty required field", func(t *testing.T) {
		t.Parallel()

		_, verr := sift.FacultySchema().Check(map[string]any{"name": "Jane Doe", "title": "  "}, "")

		require.NotNil(t, verr)
		assert.Equal(t, sift.ReasonMissingField, verr.Code)
	})

	t.Run("object for scalar field", func(t *testing.T) {
		t.Parallel()

		raw := map[string]any{"name": map[string]any{"first": "Jane"}, "title": "Professor"}

		_, verr := sift.FacultySchema().Check(raw, "")

		require.NotNil(t, verr)
		assert.Equal(t, sift.ReasonTypeMismatch, verr.Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()

		raw := map[string]any{"name": "Jane Doe", "title": "Professor", "email": "not an email"}

		_, verr := sift.FacultySchema().Check(raw, "")

		require.NotNil(t, verr)
		assert.Equal(t, "email", verr.Field)
	})

	t.Run("normalizes price", func(t *testing.T) {
		t.Parallel()

		values, verr := sift.ProductSchema().Check(map[string]any{"title": "Widget", "price": "Now $1,299.5!"}, "")

		require.Nil(t, verr)
		assert.Equal(t, "$1299.50", values["price"])
	})

	t.Run("numeric price", func(t *testing.T) {
		t.Parallel()

		values, verr := sift.ProductSchema().Check(map[string]any{"title": "Widget", "price": 12.0}, "")

		require.Nil(t, verr)
		assert.Equal(t, "12.00", values["price"])
	})

	t.Run("zero price is rejected", func(t *testing.T) {
		t.Parallel()

		_, verr := sift.ProductSchema().Check(map[string]any{"title": "Widget", "price": "$0.00"}, "")

		require.NotNil(t, verr)
		assert.Equal(t, "price", verr.Field)
		assert.Equal(t, sift.ReasonTypeMismatch, verr.Code)
	})

	t.Run("enum is canonicalized", func(t *testing.T) {
		t.Parallel()

		s := &sift.Schema{Name: "x", Fields: []sift.Field{{Name: "rank", Type: sift.FieldEnum, Enum: []string{"Assistant", "Full"}}}}

		values, verr := s.Check(map[string]any{"rank": "full"}, "")

		require.Nil(t, verr)
		assert.Equal(t, "Full", values["rank"])
	})

	t.Run("no schema fields present", func(t *testing.T) {
		t.Parallel()

		s := &sift.Schema{Name: "x", Fields: []sift.Field{{Name: "a", Type: sift.FieldString}}}

		_, verr := s.Check(map[string]any{"b": "x"}, "")

		require.NotNil(t, verr)
		assert.Equal(t, sift.ReasonMissingField, verr.Code)
	})
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	n, ok := sift.ParsePrice("$1299.50")
	require.True(t, ok)
	assert.InDelta(t, 1299.5, n, 0.0001)

	_, ok = sift.ParsePrice("free")
	assert.False(t, ok)
}

func TestLookupSchema(t *testing.T) {
	t.Parallel()

	t.Run("finds preset by name", func(t *testing.T) {
		t.Parallel()

		s, err := sift.LookupSchema("product")

		require.NoError(t, err)
		assert.Equal(t, "product", s.Name)
	})

	t.Run("returns ENOTFOUND for unknown name", func(t *testing.T) {
		t.Parallel()

		_, err := sift.LookupSchema("recipes")

		assert.Equal(t, sift.ENOTFOUND, sift.ErrorCode(err))
	})

	t.Run("presets are valid", func(t *testing.T) {
		t.Parallel()

		for _, s := range sift.BuiltinSchemas() {
			assert.NoError(t, s.Validate(), s.Name)
		}
	})
}
