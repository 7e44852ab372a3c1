// Package router maps instruments to their home region and executes
// sized orders against the region's configured destinations, with a
// single fallback attempt for India.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/types"
)

// DetectRegion classifies an instrument by its suffix: NSE/BSE tickers
// carry .NS or .BO, everything else trades in the US.
func DetectRegion(symbol string) types.Region {
	s := strings.ToUpper(symbol)
	if strings.HasSuffix(s, ".NS") || strings.HasSuffix(s, ".BO") {
		return types.RegionIN
	}
	return types.RegionUS
}

// Routes names the destinations per region. US has no fallback in the
// current model; an empty IndiaFallback disables the retry.
type Routes struct {
	USPrimary     string
	IndiaPrimary  string
	IndiaFallback string
}

// Router resolves a region to registered destinations and executes with
// at most one fallback attempt.
type Router struct {
	routes       Routes
	destinations map[string]interfaces.Destination
}

func New(routes Routes) *Router {
	return &Router{
		routes:       routes,
		destinations: make(map[string]interfaces.Destination),
	}
}

// Register adds an execution venue under its name.
func (r *Router) Register(d interfaces.Destination) {
	r.destinations[d.Name()] = d
}

// SelectDestinations returns the primary and optional fallback for a
// region. Unregistered names resolve to nil.
func (r *Router) SelectDestinations(region types.Region) (primary, fallback interfaces.Destination) {
	if region == types.RegionIN {
		return r.destinations[r.routes.IndiaPrimary], r.destinations[r.routes.IndiaFallback]
	}
	return r.destinations[r.routes.USPrimary], nil
}

// Execute places the order at the region's primary destination and, on a
// destination-reported failure, retries exactly once at the fallback. An
// attempt abandoned on deadline expiry or cancellation is terminal with
// no fallback, since the order's fate at the primary is unknown.
// Every attempt is recorded in the result regardless of outcome; on
// exhaustion the attempts come back alongside an error wrapping
// types.ErrExecution.
func (r *Router) Execute(ctx context.Context, order *types.SizedOrder) (*types.ExecutionResult, error) {
	primary, fallback := r.SelectDestinations(order.Region)
	if primary == nil {
		return nil, fmt.Errorf("no destination configured for region %s: %w", order.Region, types.ErrExecution)
	}

	result := &types.ExecutionResult{}
	req := types.OrderRequest{
		Symbol:   order.Symbol,
		Action:   order.Action,
		Quantity: order.Quantity,
		Price:    order.Price,
	}

	conf, attempt, perr := place(ctx, primary, req)
	result.Attempts = append(result.Attempts, attempt)
	if attempt.Success {
		result.Destination = primary.Name()
		result.OrderID = conf.OrderID
		logger.Trade(ctx, order.Symbol, order.Action, order.Quantity, order.Price,
			conf.OrderID, primary.Name())
		return result, nil
	}

	logger.Warn(ctx, "primary destination failed",
		"symbol", order.Symbol, "destination", primary.Name(), "error", attempt.Error)

	// A deadline or cancellation is not a destination-reported failure:
	// the primary order may have gone through. Never retry it elsewhere.
	if timedOut(ctx, perr) {
		return result, fmt.Errorf("primary attempt abandoned for %s: %v: %w",
			order.Symbol, perr, types.ErrExecution)
	}

	if fallback != nil {
		conf, attempt, _ = place(ctx, fallback, req)
		result.Attempts = append(result.Attempts, attempt)
		if attempt.Success {
			result.Destination = fallback.Name()
			result.OrderID = conf.OrderID
			logger.Trade(ctx, order.Symbol, order.Action, order.Quantity, order.Price,
				conf.OrderID, fallback.Name())
			return result, nil
		}
		logger.Warn(ctx, "fallback destination failed",
			"symbol", order.Symbol, "destination", fallback.Name(), "error", attempt.Error)
	}

	return result, fmt.Errorf("all destinations failed for %s: %w", order.Symbol, types.ErrExecution)
}

func place(ctx context.Context, d interfaces.Destination, req types.OrderRequest) (types.OrderConfirmation, types.ExecutionAttempt, error) {
	start := time.Now()
	conf, err := d.PlaceOrder(ctx, req)
	attempt := types.ExecutionAttempt{
		Destination: d.Name(),
		LatencyMS:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		attempt.Error = err.Error()
		return types.OrderConfirmation{}, attempt, err
	}
	attempt.Success = true
	attempt.OrderID = conf.OrderID
	return conf, attempt, nil
}

// timedOut reports whether an attempt failed because its deadline
// expired or the cycle was cancelled, rather than because the
// destination rejected the order.
func timedOut(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
