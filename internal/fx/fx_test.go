package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	rate  float64
	err   error
	calls int
}

func (f *fakeSource) USDINR(ctx context.Context) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

func TestUSDINRFallbackWithoutSource(t *testing.T) {
	c := NewConverter(nil)
	assert.InDelta(t, fallbackUSDINR, c.USDINR(context.Background()), 1e-9)
}

func TestUSDINRCachesWithinTTL(t *testing.T) {
	src := &fakeSource{rate: 88.0}
	c := NewConverter(src)
	now := time.Now()
	c.now = func() time.Time { return now }

	assert.InDelta(t, 88.0, c.USDINR(context.Background()), 1e-9)
	assert.InDelta(t, 88.0, c.USDINR(context.Background()), 1e-9)
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Hour)
	src.rate = 90.0
	assert.InDelta(t, 90.0, c.USDINR(context.Background()), 1e-9)
	assert.Equal(t, 2, src.calls)
}

func TestUSDINRKeepsStaleRateOnSourceFailure(t *testing.T) {
	src := &fakeSource{rate: 88.0}
	c := NewConverter(src)
	now := time.Now()
	c.now = func() time.Time { return now }

	assert.InDelta(t, 88.0, c.USDINR(context.Background()), 1e-9)

	now = now.Add(2 * time.Hour)
	src.err = errors.New("upstream down")
	assert.InDelta(t, 88.0, c.USDINR(context.Background()), 1e-9)
}

func TestToUSD(t *testing.T) {
	src := &fakeSource{rate: 89.5}
	c := NewConverter(src)
	assert.InDelta(t, 1000.0, c.ToUSD(context.Background(), 89500), 1e-6)
}
