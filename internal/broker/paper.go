// Package broker provides execution venues. The paper venue fills every
// order instantly at the requested price and exists so dry runs exercise
// the full routing path without touching a real brokerage.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/types"
)

type Paper struct {
	name string

	mu  sync.Mutex
	seq int64
}

var _ interfaces.Destination = (*Paper)(nil)

// NewPaper returns a simulated venue registered under name.
func NewPaper(name string) *Paper {
	return &Paper{name: name}
}

func (p *Paper) Name() string { return p.name }

func (p *Paper) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return types.OrderConfirmation{}, fmt.Errorf("paper order aborted: %w", err)
	}

	p.mu.Lock()
	p.seq++
	id := fmt.Sprintf("%s-paper-%s-%06d", p.name, time.Now().UTC().Format("20060102"), p.seq)
	p.mu.Unlock()

	logger.Info(ctx, "paper order filled",
		"venue", p.name, "symbol", req.Symbol, "action", req.Action,
		"quantity", req.Quantity, "price", req.Price, "order_id", id)

	return types.OrderConfirmation{
		OrderID: id,
		Status:  "COMPLETE",
		Message: fmt.Sprintf("simulated fill: %d %s @ %.2f", req.Quantity, req.Symbol, req.Price),
	}, nil
}
