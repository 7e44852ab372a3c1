package interfaces

import (
	"context"

	"trading-agent/internal/types"
)

// Pipeline evaluates one instrument per invocation and returns the
// durable record of the run.
type Pipeline interface {
	Run(ctx context.Context, symbol string) (*types.TradeRecord, error)
}
