package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUDeletePrefixAndPurge(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Set("2025-12/accounts", 1)
	c.Set("2025-12/ledger", 2)
	c.Set("2025-11/accounts", 3)

	assert.Equal(t, 2, c.DeletePrefix("2025-12/"))
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Equal(t, 0, c.Size())
	c.Set("again", 4)
	v, ok := c.Get("again")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestJanitorStopsOnCancel(t *testing.T) {
	c := NewLRU[int](4, time.Nanosecond)
	c.Set("a", 1)
	ctx, cancel := context.WithCancel(context.Background())
	j := NewJanitor(c)
	go j.Run(ctx, time.Millisecond)

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
