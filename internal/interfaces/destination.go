package interfaces

import (
	"context"

	"trading-agent/internal/types"
)

// Destination is one execution venue (brokerage) for a region.
type Destination interface {
	Name() string
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderConfirmation, error)
}
