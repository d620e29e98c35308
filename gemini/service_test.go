package gemini_test

import (
	"context"
	"testing"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractionService_Complete_ReturnsErrorWhenTextEmpty(t *testing.T) {
	t.Parallel()

	svc := gemini.NewExtractionService(nil, "") // nil client ok for this test

	_, err := svc.Complete(context.Background(), sift.ExtractionRequest{Schema: sift.FacultySchema()})

	require.Error(t, err)
	assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
	assert.Contains(t, sift.ErrorMessage(err), "text required")
}

func TestExtractionService_Complete_ReturnsErrorWhenSchemaMissing(t *testing.T) {
	t.Parallel()

	svc := gemini.NewExtractionService(nil, "")

	_, err := svc.Complete(context.Background(), sift.ExtractionRequest{Text: "Jane Doe"})

	require.Error(t, err)
	assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
}

func TestBuildConfig_RequestsJSON(t *testing.T) {
	t.Parallel()

	config := gemini.BuildConfig(sift.ExtractionRequest{Schema: sift.FacultySchema()})

	assert.Equal(t, "application/json", config.ResponseMIMEType)
	require.NotNil(t, config.ResponseSchema)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.0, *config.Temperature, 0.001)
	require.NotNil(t, config.SystemInstruction)
	assert.Contains(t, config.SystemInstruction.Parts[0].Text, "extract structured records")
}

func TestResponseSchema(t *testing.T) {
	t.Parallel()

	s := gemini.ResponseSchema(sift.FacultySchema())

	assert.Equal(t, genai.TypeObject, s.Type)
	records := s.Properties["records"]
	require.NotNil(t, records)
	assert.Equal(t, genai.TypeArray, records.Type)
	item := records.Items
	require.NotNil(t, item)
	assert.Equal(t, []string{"name", "title"}, item.Required)
	assert.Equal(t, genai.TypeString, item.Properties["email"].Type)
	assert.Equal(t, genai.TypeArray, item.Properties["research_interests"].Type)
	assert.Equal(t, genai.TypeString, item.Properties["research_interests"].Items.Type)
}

func TestResponseSchema_Enum(t *testing.T) {
	t.Parallel()

	s := &sift.Schema{Name: "x", Fields: []sift.Field{
		{Name: "rank", Type: sift.FieldEnum, Enum: []string{"Assistant", "Full"}},
		{Name: "age", Type: sift.FieldNumber},
	}}

	item := gemini.ResponseSchema(s).Properties["records"].Items

	assert.Equal(t, []string{"Assistant", "Full"}, item.Properties["rank"].Enum)
	assert.Equal(t, genai.TypeNumber, item.Properties["age"].Type)
	assert.Empty(t, item.Required)
}

func TestBuildUserPrompt(t *testing.T) {
	t.Parallel()

	t.Run("contains instruction and content", func(t *testing.T) {
		t.Parallel()

		prompt := gemini.BuildUserPrompt(sift.ExtractionRequest{
			Instruction: "Extract every faculty record.",
			Text:        "Jane Doe, Professor",
		})

		assert.Contains(t, prompt, "Extract every faculty record.")
		assert.Contains(t, prompt, "<content>\nJane Doe, Professor\n</content>")
	})

	t.Run("appends correction hint on retry", func(t *testing.T) {
		t.Parallel()

		prompt := gemini.BuildUserPrompt(sift.ExtractionRequest{
			Instruction:    "Extract.",
			Text:           "Jane Doe",
			CorrectionHint: "Respond with only JSON.",
		})

		assert.Contains(t, prompt, "</content>\n\nRespond with only JSON.")
	})

	t.Run("omits hint on first attempt", func(t *testing.T) {
		t.Parallel()

		prompt := gemini.BuildUserPrompt(sift.ExtractionRequest{Instruction: "Extract.", Text: "Jane Doe"})

		assert.NotContains(t, prompt, "Respond with only JSON")
	})
}
