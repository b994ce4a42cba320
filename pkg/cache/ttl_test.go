package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrRefreshCachesValue(t *testing.T) {
	c := NewTTLCache[[]string](time.Minute, time.Minute)
	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	v, err := c.GetOrRefresh(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	_, err = c.GetOrRefresh(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetOrRefreshDoesNotCacheErrors(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrRefresh(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrRefresh(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrRefreshExpires(t *testing.T) {
	c := NewTTLCache[int](20*time.Millisecond, time.Minute)
	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	v, _ := c.GetOrRefresh(context.Background(), "k", fetch)
	assert.Equal(t, 1, v)

	time.Sleep(40 * time.Millisecond)

	v, _ = c.GetOrRefresh(context.Background(), "k", fetch)
	assert.Equal(t, 2, v)
}

func TestInvalidate(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)
	one := func(context.Context) (int, error) { return 1, nil }

	_, _ = c.GetOrRefresh(context.Background(), "a", one)
	_, _ = c.GetOrRefresh(context.Background(), "b", one)
	require.Equal(t, 2, c.Len())

	c.Invalidate("a")
	assert.Equal(t, 1, c.Len())

	c.Invalidate()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrRefreshConcurrentMissFetchesOnce(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)
	var calls int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrRefresh(context.Background(), "k", func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(5 * time.Millisecond)
				return 1, nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidateDuringFetchDropsStaleValue(t *testing.T) {
	c := NewTTLCache[string](time.Minute, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string)
	go func() {
		v, _ := c.GetOrRefresh(context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate()
	close(release)
	assert.Equal(t, "stale", <-done)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrRefresh(context.Background(), "k", func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, c.Len())
}
