package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache[string](2, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	c.Set("a", "again")
	v, _ = c.Get("a")
	assert.Equal(t, "again", v)
	assert.Equal(t, 1, c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clk := newTestCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clk.advance(30 * time.Second)
	c.Set("b", 3)
	clk.advance(45 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())

	clk.advance(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheDeleteAndPurge(t *testing.T) {
	c, _ := newTestCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Equal(t, 0, c.Size())
	c.Set("c", 3)
	assert.Equal(t, 1, c.Size())
}

func TestNewLRUCacheDefaultsSize(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	for i := 0; i < 200; i++ {
		c.Set(string(rune('a'+i%26))+string(rune('0'+i/26)), i)
	}
	assert.Equal(t, 128, c.Size())
}

func TestGetOrCompute(t *testing.T) {
	c, _ := newTestCache[int](4, time.Minute)
	calls := 0
	compute := func() int {
		calls++
		return 42
	}

	assert.Equal(t, 42, GetOrCompute[int](c, "k", compute))
	assert.Equal(t, 42, GetOrCompute[int](c, "k", compute))
	assert.Equal(t, 1, calls)
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	a, clkA := newTestCache[int](4, time.Second)
	b, clkB := newTestCache[string](4, time.Second)
	a.Set("x", 1)
	b.Set("y", "z")
	clkA.advance(2 * time.Second)
	clkB.advance(2 * time.Second)

	m := NewManager()
	m.Register(a)
	m.Register(b)
	assert.Equal(t, 2, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
}
