package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/types"
)

func TestHistoryIsDeterministicPerSymbol(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	a, err := s.History(ctx, "AAPL", 100)
	require.NoError(t, err)
	b, err := s.History(ctx, "AAPL", 100)
	require.NoError(t, err)
	require.Len(t, a, 100)
	for i := range a {
		assert.Equal(t, a[i].Close, b[i].Close)
	}

	other, err := s.History(ctx, "MSFT", 100)
	require.NoError(t, err)
	assert.NotEqual(t, a[50].Close, other[50].Close)
}

func TestCurrentPriceMatchesLastClose(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	price, err := s.CurrentPrice(ctx, "TCS.NS")
	require.NoError(t, err)
	hist, err := s.History(ctx, "TCS.NS", 250)
	require.NoError(t, err)
	assert.Equal(t, hist[len(hist)-1].Close, price)
}

func TestOptionChainBracketsSpot(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	price, err := s.CurrentPrice(ctx, "NVDA")
	require.NoError(t, err)
	chain, err := s.OptionChain(ctx, "NVDA")
	require.NoError(t, err)
	require.Len(t, chain, 14) // 7 strikes x call/put

	var below, above bool
	for _, q := range chain {
		assert.Contains(t, []string{"call", "put"}, q.Type)
		if q.Strike < price {
			below = true
		}
		if q.Strike > price {
			above = true
		}
	}
	assert.True(t, below)
	assert.True(t, above)
}

func TestRateLimitPassesThrough(t *testing.T) {
	var limited interfaces.MarketData = RateLimit(NewSim(), 100, 10)

	price, err := limited.CurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)
}

func TestRateLimitHonorsContextCancellation(t *testing.T) {
	limited := RateLimit(NewSim(), 0.001, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// burn the burst token, then the next call must wait and time out
	_, _ = limited.CurrentPrice(ctx, "AAPL")
	_, err := limited.History(ctx, "AAPL", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTransientUnavailable)
}
