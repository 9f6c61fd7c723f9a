package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	r := New[int]()

	v, err := r.GetOrCreate("a", func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = r.GetOrCreate("a", func() (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v, "cached value wins")

	_, err = r.GetOrCreate("b", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	v, err = r.GetOrCreate("b", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v, "failures are not cached")
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New[*int32]()
	var created atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int32, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.GetOrCreate("shared", func() (*int32, error) {
				n := created.Add(1)
				return &n, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()

	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}
