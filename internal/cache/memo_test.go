package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_ExecutesOncePerKey(t *testing.T) {
	ctx := context.Background()
	calls := 0
	m := NewMemo[string](nil)

	fn := func(ctx context.Context) (string, error) {
		calls++
		return "result", nil
	}

	got, cached, err := m.Do(ctx, "k1", 0.01, fn)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "result", got)

	got, cached, err = m.Do(ctx, "k1", 0.01, fn)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "result", got)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Len())
}

func TestMemo_DistinctKeysExecuteSeparately(t *testing.T) {
	ctx := context.Background()
	m := NewMemo[int](nil)

	for i, key := range []string{"a", "b", "c"} {
		i := i
		v, cached, err := m.Do(ctx, key, 0, func(ctx context.Context) (int, error) {
			return i, nil
		})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 3, m.Len())
}

func TestMemo_RecordsCostOnlyOnMiss(t *testing.T) {
	ctx := context.Background()
	var total float64
	m := NewMemo[string](func(usd float64) { total += usd })

	fn := func(ctx context.Context) (string, error) { return "v", nil }

	_, _, err := m.Do(ctx, "k", 0.02, fn)
	require.NoError(t, err)
	_, _, err = m.Do(ctx, "k", 0.02, fn)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, total, 0.0001)
}

func TestMemo_FailureNotCached(t *testing.T) {
	ctx := context.Background()
	calls := 0
	m := NewMemo[string](nil)

	_, _, err := m.Do(ctx, "k", 0, func(ctx context.Context) (string, error) {
		calls++
		return "", eris.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Len())

	v, cached, err := m.Do(ctx, "k", 0, func(ctx context.Context) (string, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls)
}

func TestMemo_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	calls := 0
	misses := 0
	m := NewMemo[string](nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, cached, err := m.Do(ctx, "shared", 0, func(ctx context.Context) (string, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return "once", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "once", v)
			mu.Lock()
			if !cached {
				misses++
			}
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	// Singleflight collapses concurrent misses; the entry cache absorbs
	// the rest. Either way the operation must not run per caller, and
	// only the caller that ran it may report a miss.
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, misses)
}
