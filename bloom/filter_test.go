package bloom_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/fwojciec/sift/bloom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_AddAndTest(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test("https://a.edu/faculty"))

	f.Add("https://a.edu/faculty")

	assert.True(t, f.Test("https://a.edu/faculty"))
	assert.False(t, f.Test("https://a.edu/staff"))
}

func TestFilter_TestAndAdd(t *testing.T) {
	t.Parallel()

	t.Run("reports repeats", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(10, 0.01)

		assert.False(t, f.TestAndAdd("https://a.edu/faculty"))
		assert.True(t, f.TestAndAdd("https://a.edu/faculty"))
	})

	t.Run("treats fragment and host case as the same page", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(10, 0.01)

		assert.False(t, f.TestAndAdd("https://A.edu/faculty#top"))
		assert.True(t, f.TestAndAdd("https://a.edu/faculty"))
		assert.False(t, f.TestAndAdd("https://a.edu/Faculty"))
	})

	t.Run("safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(100, 0.01)
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !f.TestAndAdd("https://a.edu/faculty") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, fresh)
	})
}

func TestFilter_EstimatedCount(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)
	assert.Equal(t, uint(0), f.EstimatedCount())

	f.Add("https://a.edu/1")
	f.Add("https://a.edu/2")
	f.Add("https://a.edu/3")

	assert.InDelta(t, 3, f.EstimatedCount(), 1)
}

func TestFilter_WriteTo(t *testing.T) {
	t.Parallel()

	t.Run("restores added URLs", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.001)
		f.Add("https://a.edu/faculty")
		f.Add("https://b.com/shop?page=2")

		var buf bytes.Buffer
		_, err := f.WriteTo(&buf)
		require.NoError(t, err)

		g := bloom.NewFilter(1, 0.5)
		_, err = g.ReadFrom(&buf)
		require.NoError(t, err)

		assert.True(t, g.Test("https://a.edu/faculty"))
		assert.True(t, g.Test("https://B.com/shop?page=2#top"))
		assert.False(t, g.Test("https://a.edu/staff"))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(10, 0.01)
		f.Add("https://a.edu/faculty")

		_, err := f.ReadFrom(bytes.NewReader([]byte("not a filter")))

		require.Error(t, err)
		assert.True(t, f.Test("https://a.edu/faculty"))
	})
}
