// Package fx converts INR notionals to USD equivalents for cross-region
// reporting. The rate comes from an injectable source, is cached for an
// hour, and falls back to a static value when the source is unreachable.
package fx

import (
	"context"
	"sync"
	"time"

	"trading-agent/internal/logger"
)

// fallbackUSDINR is used when no rate source is configured or the
// source fails. Reporting-only, never used for sizing.
const fallbackUSDINR = 89.5

const cacheTTL = time.Hour

// RateSource returns how many INR one USD buys.
type RateSource interface {
	USDINR(ctx context.Context) (float64, error)
}

// Converter caches the USD/INR rate.
type Converter struct {
	mu        sync.Mutex
	source    RateSource
	rate      float64
	fetchedAt time.Time
	now       func() time.Time
}

func NewConverter(source RateSource) *Converter {
	return &Converter{source: source, now: time.Now}
}

// USDINR returns the cached rate, refreshing it when stale. Failures
// keep the previous rate, or the static fallback when none exists.
func (c *Converter) USDINR(ctx context.Context) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rate > 0 && c.now().Sub(c.fetchedAt) < cacheTTL {
		return c.rate
	}
	if c.source != nil {
		if rate, err := c.source.USDINR(ctx); err == nil && rate > 0 {
			c.rate = rate
			c.fetchedAt = c.now()
			return rate
		} else if err != nil {
			logger.Warn(ctx, "fx rate fetch failed, using cached or fallback", "error", err)
		}
	}
	if c.rate > 0 {
		return c.rate
	}
	return fallbackUSDINR
}

// ToUSD converts an INR amount at the current cached rate.
func (c *Converter) ToUSD(ctx context.Context, inr float64) float64 {
	rate := c.USDINR(ctx)
	if rate <= 0 {
		rate = fallbackUSDINR
	}
	return inr / rate
}
