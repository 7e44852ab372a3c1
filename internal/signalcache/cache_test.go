package signalcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestStageDiscriminator(t *testing.T) {
	payload := []byte(`{"symbol":"AAPL","price":231.5}`)
	a := Digest(payload, "analyze")
	r := Digest(payload, "review")
	require.NotEqual(t, a, r)
	// stable for identical input
	require.Equal(t, a, Digest(payload, "analyze"))
}

func TestGetPutRoundTrip(t *testing.T) {
	c := New(time.Minute, 10)
	key := Digest([]byte("snapshot"), "analyze")

	_, ok := c.Get(key)
	require.False(t, ok)

	c.Put(key, `{"action":"HOLD"}`)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, `{"action":"HOLD"}`, got)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate, 1e-9)
}

func TestExpiryIsLazy(t *testing.T) {
	c := New(time.Minute, 10)
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	c.Put("k", "v")
	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(61 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCapacityEvictsLRU(t *testing.T) {
	c := New(time.Minute, 3)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), "v")
	}
	// touch k0 so k1 becomes the eviction candidate
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Put("k3", "v")
	_, ok = c.Get("k1")
	assert.False(t, ok)
	_, ok = c.Get("k0")
	assert.True(t, ok)
	_, ok = c.Get("k3")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Stats().Entries)
}

func TestPutRefreshesExisting(t *testing.T) {
	c := New(time.Minute, 2)
	c.Put("k", "v1")
	c.Put("k", "v2")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
	assert.Equal(t, 1, c.Stats().Entries)
}
