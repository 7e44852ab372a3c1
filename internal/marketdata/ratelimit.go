package marketdata

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/types"
)

// rateLimited wraps a MarketData provider with a shared token bucket so
// concurrent pipelines respect the upstream request budget. Wait honors
// the caller's deadline; hitting it reads as a transient failure.
type rateLimited struct {
	inner   interfaces.MarketData
	limiter *rate.Limiter
}

var _ interfaces.MarketData = (*rateLimited)(nil)

// RateLimit bounds the provider to rps requests per second with the
// given burst.
func RateLimit(inner interfaces.MarketData, rps float64, burst int) interfaces.MarketData {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *rateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %v: %w", err, types.ErrTransientUnavailable)
	}
	return nil
}

func (r *rateLimited) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := r.wait(ctx); err != nil {
		return 0, err
	}
	return r.inner.CurrentPrice(ctx, symbol)
}

func (r *rateLimited) History(ctx context.Context, symbol string, days int) ([]types.Candle, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.History(ctx, symbol, days)
}

func (r *rateLimited) OptionChain(ctx context.Context, symbol string) ([]types.OptionQuote, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.OptionChain(ctx, symbol)
}
