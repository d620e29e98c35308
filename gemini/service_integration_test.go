//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/extract"
	"github.com/fwojciec/sift/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractionService_Integration_ExtractsFaculty(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	require.NoError(t, err)

	c := extract.NewClient(gemini.NewExtractionService(client, ""), extract.Config{})
	chunk := sift.Chunk{
		SourceURL: "https://a.edu/faculty",
		FetchedAt: time.Now(),
		Content:   "## Faculty\n\n**Jane Doe**\nProfessor of Physics\njane.doe@a.edu\n\n**John Roe**\nLecturer in Chemistry",
	}

	ext, err := c.Extract(ctx, chunk, sift.FacultySchema())

	require.NoError(t, err)
	assert.Len(t, ext.Valid(), 2)
}
