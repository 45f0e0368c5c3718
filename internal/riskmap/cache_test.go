package riskmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache[string](time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCacheTTLExpiry(t *testing.T) {
	now := time.Now()
	c := NewCache[string](30 * time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")

	// Reads do not extend the ttl
	now = now.Add(29 * time.Second)
	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire once now - insertedAt >= ttl, without Clear")
}

func TestCacheSetRefreshesTimestamp(t *testing.T) {
	now := time.Now()
	c := NewCache[int](10 * time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	now = now.Add(8 * time.Second)
	c.Set("k", 2)
	now = now.Add(8 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok, "overwrite must reset the insertion timestamp")
	assert.Equal(t, 2, got)
}

func TestCacheClear(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheStoresNilValue(t *testing.T) {
	// A cached "no result" is a hit, distinguishable from a miss.
	c := NewCache[*ConfigEntry](time.Minute)
	c.Set("k", nil)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Nil(t, got)
}
