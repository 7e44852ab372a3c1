package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-agent/internal/types"
)

func TestPaperFillsInstantly(t *testing.T) {
	p := NewPaper("zerodha")
	assert.Equal(t, "zerodha", p.Name())

	conf, err := p.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol: "TCS.NS", Action: types.ActionBuyStock, Quantity: 10, Price: 4100,
	})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", conf.Status)
	assert.Contains(t, conf.OrderID, "zerodha-paper-")
}

func TestPaperOrderIDsAreUnique(t *testing.T) {
	p := NewPaper("icici")
	a, err := p.PlaceOrder(context.Background(), types.OrderRequest{Symbol: "INFY.NS", Quantity: 1, Price: 100})
	require.NoError(t, err)
	b, err := p.PlaceOrder(context.Background(), types.OrderRequest{Symbol: "INFY.NS", Quantity: 1, Price: 100})
	require.NoError(t, err)
	assert.NotEqual(t, a.OrderID, b.OrderID)
}

func TestPaperHonorsCancelledContext(t *testing.T) {
	p := NewPaper("robinhood")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.PlaceOrder(ctx, types.OrderRequest{Symbol: "AAPL", Quantity: 1, Price: 100})
	require.Error(t, err)
}
