package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uniroute/uniroute/domain/cache"
)

func TestCache_SetGet(t *testing.T) {
	c := cache.New()

	c.Set("a", 1, cache.NoExpirationTTL)

	value, found := c.Get("a")
	require.True(t, found)
	require.Equal(t, 1, value)

	_, found = c.Get("b")
	require.False(t, found)
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New()

	c.Set("a", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, found := c.Get("a")
	require.False(t, found)
	require.Equal(t, 0, c.Len())
}

func TestCache_GetWithAge(t *testing.T) {
	c := cache.New()

	c.Set("a", "v", time.Minute)

	value, age, found := c.GetWithAge("a")
	require.True(t, found)
	require.Equal(t, "v", value)
	require.GreaterOrEqual(t, age, time.Duration(0))
	require.Less(t, age, time.Minute)
}

func TestCache_Delete(t *testing.T) {
	c := cache.New()

	c.Set("a", 1, cache.NoExpirationTTL)
	c.Delete("a")

	_, found := c.Get("a")
	require.False(t, found)
}

func TestCache_Concurrency(t *testing.T) {
	c := cache.New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("shared", i, time.Minute)
			c.Get("shared")
		}(i)
	}
	wg.Wait()

	_, found := c.Get("shared")
	require.True(t, found)
}
