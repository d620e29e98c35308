//go:build integration

package rod_test

import (
	"testing"

	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserManager_Browser(t *testing.T) {
	t.Parallel()

	t.Run("recycles browser after max pages", func(t *testing.T) {
		t.Parallel()

		manager, err := rod.NewBrowserManager(rod.WithMaxPages(3))
		require.NoError(t, err)
		defer manager.Close()

		first, err := manager.Browser()
		require.NoError(t, err)

		manager.IncrementPageCount()
		manager.IncrementPageCount()
		manager.IncrementPageCount()

		second, err := manager.Browser()
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})

	t.Run("keeps browser below max pages", func(t *testing.T) {
		t.Parallel()

		manager, err := rod.NewBrowserManager(rod.WithMaxPages(5))
		require.NoError(t, err)
		defer manager.Close()

		first, err := manager.Browser()
		require.NoError(t, err)

		manager.IncrementPageCount()
		manager.IncrementPageCount()

		same, err := manager.Browser()
		require.NoError(t, err)
		assert.Same(t, first, same)
	})

	t.Run("returns EINVALID after close", func(t *testing.T) {
		t.Parallel()

		manager, err := rod.NewBrowserManager()
		require.NoError(t, err)
		require.NoError(t, manager.Close())

		_, err = manager.Browser()

		assert.Equal(t, sift.EINVALID, sift.ErrorCode(err))
		assert.Zero(t, manager.LauncherPID())
	})
}
