package interfaces

import (
	"context"

	"trading-agent/internal/types"
)

// MarketData is the consumed market-data capability. Implementations may
// fail with types.ErrTransientUnavailable wrapped in the returned error.
type MarketData interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	History(ctx context.Context, symbol string, days int) ([]types.Candle, error)
	OptionChain(ctx context.Context, symbol string) ([]types.OptionQuote, error)
}
