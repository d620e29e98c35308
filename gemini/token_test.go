package gemini_test

import (
	"context"
	"testing"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounter_CountTokens(t *testing.T) {
	t.Parallel()

	tc, err := gemini.NewTokenCounter("gemini-2.0-flash")
	require.NoError(t, err)

	t.Run("counts tokens in chunk text", func(t *testing.T) {
		t.Parallel()

		count, err := tc.CountTokens(context.Background(), "Jane Doe, Professor of Physics")

		require.NoError(t, err)
		assert.Positive(t, count)
	})

	t.Run("returns zero for empty text", func(t *testing.T) {
		t.Parallel()

		count, err := tc.CountTokens(context.Background(), "")

		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("grows with text length", func(t *testing.T) {
		t.Parallel()

		short, err := tc.CountTokens(context.Background(), "Jane Doe")
		require.NoError(t, err)
		long, err := tc.CountTokens(context.Background(), "Jane Doe is a Professor of Physics whose research covers condensed matter and quantum materials.")
		require.NoError(t, err)

		assert.Greater(t, long, short)
	})

	t.Run("returns context error when canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := tc.CountTokens(ctx, "Jane Doe")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewTokenCounter_UnknownModel(t *testing.T) {
	t.Parallel()

	_, err := gemini.NewTokenCounter("no-such-model")

	assert.Equal(t, sift.ECONFIG, sift.ErrorCode(err))
}
