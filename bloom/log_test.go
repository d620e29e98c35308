package bloom_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/bloom"
	"github.com/fwojciec/sift/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDir_OpenPageLog(t *testing.T) {
	t.Parallel()

	t.Run("starts empty for a new target", func(t *testing.T) {
		t.Parallel()

		dir := bloom.NewLogDir(t.TempDir())

		log, err := dir.OpenPageLog(context.Background(), "site-a")

		require.NoError(t, err)
		assert.False(t, log.Seen("https://a.edu/faculty"))
	})

	t.Run("remembers pages across saves", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		root := t.TempDir()
		dir := bloom.NewLogDir(root)
		log, err := dir.OpenPageLog(ctx, "site-a")
		require.NoError(t, err)
		log.Record("https://a.edu/faculty?page=1")
		require.NoError(t, dir.SavePageLog(ctx, "site-a", log))

		again, err := bloom.NewLogDir(root).OpenPageLog(ctx, "site-a")

		require.NoError(t, err)
		assert.True(t, again.Seen("https://a.edu/faculty?page=1"))
		assert.False(t, again.Seen("https://a.edu/faculty?page=2"))
	})

	t.Run("keeps targets apart", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		dir := bloom.NewLogDir(t.TempDir())
		log, err := dir.OpenPageLog(ctx, "site-a")
		require.NoError(t, err)
		log.Record("https://a.edu/faculty")
		require.NoError(t, dir.SavePageLog(ctx, "site-a", log))

		other, err := dir.OpenPageLog(ctx, "site-b")

		require.NoError(t, err)
		assert.False(t, other.Seen("https://a.edu/faculty"))
	})

	t.Run("escapes target names", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		dir := bloom.NewLogDir(root)

		assert.Equal(t, filepath.Join(root, "a%2Fb.bloom"), dir.Path("a/b"))
	})

	t.Run("returns error for a corrupt log", func(t *testing.T) {
		t.Parallel()

		dir := bloom.NewLogDir(t.TempDir())
		require.NoError(t, os.MkdirAll(filepath.Dir(dir.Path("site-a")), 0755))
		require.NoError(t, os.WriteFile(dir.Path("site-a"), []byte("garbage"), 0644))

		_, err := dir.OpenPageLog(context.Background(), "site-a")

		require.Error(t, err)
	})

	t.Run("requires target", func(t *testing.T) {
		t.Parallel()

		_, err := bloom.NewLogDir(t.TempDir()).OpenPageLog(context.Background(), "")

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
	})
}

func TestLogDir_SavePageLog(t *testing.T) {
	t.Parallel()

	t.Run("rejects foreign logs", func(t *testing.T) {
		t.Parallel()

		dir := bloom.NewLogDir(t.TempDir())

		err := dir.SavePageLog(context.Background(), "site-a", &mock.PageLog{})

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
	})

	t.Run("leaves no temporary files", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		dir := bloom.NewLogDir(root)
		log, err := dir.OpenPageLog(context.Background(), "site-a")
		require.NoError(t, err)
		require.NoError(t, dir.SavePageLog(context.Background(), "site-a", log))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "site-a.bloom", entries[0].Name())
	})
}
