package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration, max int) (*Cache[string], *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	c := New[string](ttl, max, WithClock(clock))
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "csv")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "csv", v)
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.Set("k", "csv")
	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c, clock := newTestCache(t, time.Hour, 2)

	c.Set("first", "1")
	clock.Advance(time.Second)
	c.Set("second", "2")
	clock.Advance(time.Second)
	c.Set("third", "3")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(t, time.Hour, 2)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")

	assert.Equal(t, 2, c.Len())
	v, _ := c.Get("a")
	assert.Equal(t, "3", v)
}

func TestCache_EvictExpired(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.Set("old", "1")
	clock.Advance(2 * time.Minute)
	c.Set("fresh", "2")

	c.evictExpired()

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)
	c.Set("a", "1")
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	a := Key("csv", []byte(`[{"a":1}]`))
	b := Key("csv", []byte(`[{"a":1}]`))
	c := Key("csv", []byte(`[{"a":2}]`))
	d := Key("plot", []byte(`[{"a":1}]`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[int](time.Minute, 1)
	c.Close()
	c.Close()
}
