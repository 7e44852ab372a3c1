// Package risk owns the per-region capital ledgers. A ledger tracks
// committed notional against a fixed ceiling, holds positions, and
// converts approved decisions into bounded order sizes. All money math
// uses decimal arithmetic; float drift must never decide a trade.
package risk

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trading-agent/internal/logger"
	"trading-agent/internal/types"
)

// RejectReason is the explicit non-error outcome of a sizing attempt.
// Distinct from pipeline failures: a rejection is a legitimate terminal
// result for the cycle.
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectCapitalFloor    RejectReason = "CAPITAL_FLOOR"
	RejectZeroHeadroom    RejectReason = "ZERO_HEADROOM"
	RejectNonPositiveSize RejectReason = "NON_POSITIVE_SIZE"
	RejectNoPosition      RejectReason = "NO_POSITION"
	RejectCircuitBreaker  RejectReason = "CIRCUIT_BREAKER"
)

// Position is a held lot for one symbol within a region.
type Position struct {
	Symbol   string
	Quantity int
	AvgPrice decimal.Decimal
}

// Limits configures one ledger.
type Limits struct {
	MaxCapital      float64 // regional ceiling
	MaxPerTrade     float64 // absolute cap; 0 means 20% of ceiling
	MaxRiskPerTrade float64 // fraction of remaining capital at risk per trade
	CapitalFloor    float64 // sizing rejects outright below this
	ATRStopMult     float64 // stop distance when the decision gives none
	MaxDailyLossPct float64 // realized-loss circuit breaker, fraction of ceiling
	MaxDailyTrades  int
}

func (l *Limits) normalize() {
	if l.MaxPerTrade <= 0 {
		l.MaxPerTrade = l.MaxCapital * 0.20
	}
	if l.MaxRiskPerTrade <= 0 {
		l.MaxRiskPerTrade = 0.02
	}
	if l.CapitalFloor <= 0 {
		l.CapitalFloor = 100
	}
	if l.ATRStopMult <= 0 {
		l.ATRStopMult = 2.0
	}
	if l.MaxDailyLossPct <= 0 {
		l.MaxDailyLossPct = 0.05
	}
	if l.MaxDailyTrades <= 0 {
		l.MaxDailyTrades = 50
	}
}

// Ledger is the single mutual-exclusion point for a region: every sizing
// decision reserves notional inside one critical section, so concurrent
// pipelines cannot jointly overspend the ceiling.
type Ledger struct {
	mu sync.Mutex

	region       types.Region
	ceiling      decimal.Decimal
	maxPerTrade  decimal.Decimal
	maxRisk      decimal.Decimal
	floor        decimal.Decimal
	atrStopMult  decimal.Decimal
	maxDailyLoss decimal.Decimal

	committed decimal.Decimal
	positions map[string]*Position

	dailyLoss      decimal.Decimal
	dailyTrades    int
	maxDailyTrades int
	day            time.Time

	now func() time.Time
}

func NewLedger(region types.Region, limits Limits) *Ledger {
	limits.normalize()
	ceiling := decimal.NewFromFloat(limits.MaxCapital)
	return &Ledger{
		region:         region,
		ceiling:        ceiling,
		maxPerTrade:    decimal.NewFromFloat(limits.MaxPerTrade),
		maxRisk:        decimal.NewFromFloat(limits.MaxRiskPerTrade),
		floor:          decimal.NewFromFloat(limits.CapitalFloor),
		atrStopMult:    decimal.NewFromFloat(limits.ATRStopMult),
		maxDailyLoss:   ceiling.Mul(decimal.NewFromFloat(limits.MaxDailyLossPct)),
		committed:      decimal.Zero,
		positions:      make(map[string]*Position),
		maxDailyTrades: limits.MaxDailyTrades,
		day:            truncateDay(time.Now()),
		now:            time.Now,
	}
}

func (l *Ledger) Region() types.Region { return l.region }

// Headroom is the uncommitted capital remaining under the ceiling.
func (l *Ledger) Headroom() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, _ := l.ceiling.Sub(l.committed).Float64()
	return f
}

// Position returns a copy of the held lot, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Size translates an approved decision into a bounded order. For buys
// the quantity is the lesser of the risk-scaled size, the per-trade cap,
// and remaining headroom; the resulting notional is reserved before the
// lock is released. For sells the quantity is the held quantity. The
// second return is the rejection reason when no order is produced.
func (l *Ledger) Size(ctx context.Context, symbol string, dec types.Decision, price, atr float64) (*types.SizedOrder, RejectReason) {
	if price <= 0 {
		return nil, RejectNonPositiveSize
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()

	if l.breakerTrippedLocked() {
		logger.Warn(ctx, "circuit breaker active",
			"region", l.region, "symbol", symbol,
			"daily_loss", l.dailyLoss.String(), "daily_trades", l.dailyTrades)
		return nil, RejectCircuitBreaker
	}

	if dec.Action == types.ActionSell {
		pos, ok := l.positions[symbol]
		if !ok || pos.Quantity <= 0 {
			return nil, RejectNoPosition
		}
		return l.orderLocked(symbol, dec.Action, pos.Quantity, price), RejectNone
	}

	headroom := l.ceiling.Sub(l.committed)
	if headroom.LessThan(l.floor) {
		logger.Warn(ctx, "sizing rejected below capital floor",
			"region", l.region, "symbol", symbol,
			"headroom", headroom.String(), "floor", l.floor.String())
		return nil, RejectCapitalFloor
	}

	priceD := decimal.NewFromFloat(price)
	stop := l.stopDistanceLocked(dec, price, atr)

	sharesByCap := l.maxPerTrade.Div(priceD).IntPart()
	sharesByHeadroom := headroom.Div(priceD).IntPart()
	qty := minInt64(sharesByCap, sharesByHeadroom)

	if stop.IsPositive() {
		riskBudget := headroom.Mul(l.maxRisk)
		sharesByRisk := riskBudget.Div(stop).IntPart()
		qty = minInt64(qty, sharesByRisk)
	}
	if qty <= 0 {
		if sharesByHeadroom <= 0 {
			return nil, RejectZeroHeadroom
		}
		return nil, RejectNonPositiveSize
	}

	order := l.orderLocked(symbol, dec.Action, int(qty), price)
	l.committed = l.committed.Add(decimal.NewFromFloat(order.Notional))

	logger.Risk(ctx, symbol, "order_sized",
		"region", l.region,
		"quantity", order.Quantity,
		"notional", order.Notional,
		"headroom_after", l.ceiling.Sub(l.committed).String())
	return order, RejectNone
}

// Release returns reserved notional after a failed buy execution.
func (l *Ledger) Release(order *types.SizedOrder) {
	if order == nil || !order.Action.IsBuy() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.committed = l.committed.Sub(decimal.NewFromFloat(order.Notional))
	if l.committed.IsNegative() {
		l.committed = decimal.Zero
	}
}

// RecordFill settles a confirmed execution: buys become positions, sells
// realize PnL, free their committed notional, and feed the daily loss
// counter that trips the circuit breaker.
func (l *Ledger) RecordFill(ctx context.Context, order *types.SizedOrder) {
	if order == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()

	priceD := decimal.NewFromFloat(order.Price)
	qtyD := decimal.NewFromInt(int64(order.Quantity))

	if order.Action.IsBuy() {
		pos, ok := l.positions[order.Symbol]
		if !ok {
			l.positions[order.Symbol] = &Position{
				Symbol: order.Symbol, Quantity: order.Quantity, AvgPrice: priceD,
			}
		} else {
			totalQty := pos.Quantity + order.Quantity
			totalCost := pos.AvgPrice.Mul(decimal.NewFromInt(int64(pos.Quantity))).Add(priceD.Mul(qtyD))
			pos.AvgPrice = totalCost.Div(decimal.NewFromInt(int64(totalQty)))
			pos.Quantity = totalQty
		}
		l.dailyTrades++
		return
	}

	// sell
	pnl := decimal.Zero
	if pos, ok := l.positions[order.Symbol]; ok {
		pnl = priceD.Sub(pos.AvgPrice).Mul(qtyD)
		l.committed = l.committed.Sub(pos.AvgPrice.Mul(qtyD))
		if l.committed.IsNegative() {
			l.committed = decimal.Zero
		}
		pos.Quantity -= order.Quantity
		if pos.Quantity <= 0 {
			delete(l.positions, order.Symbol)
		}
	}
	if pnl.IsNegative() {
		l.dailyLoss = l.dailyLoss.Add(pnl.Abs())
	}
	l.dailyTrades++
	logger.Info(ctx, "sell settled",
		"region", l.region, "symbol", order.Symbol,
		"quantity", order.Quantity, "pnl", pnl.String())
}

// BreakerTripped reports whether the daily circuit breaker is active.
func (l *Ledger) BreakerTripped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()
	return l.breakerTrippedLocked()
}

func (l *Ledger) breakerTrippedLocked() bool {
	return l.dailyLoss.GreaterThanOrEqual(l.maxDailyLoss) || l.dailyTrades >= l.maxDailyTrades
}

func (l *Ledger) rollDayLocked() {
	today := truncateDay(l.now())
	if !today.Equal(l.day) {
		l.dailyLoss = decimal.Zero
		l.dailyTrades = 0
		l.day = today
	}
}

func (l *Ledger) stopDistanceLocked(dec types.Decision, price, atr float64) decimal.Decimal {
	if dec.StopLoss != nil && *dec.StopLoss > 0 && *dec.StopLoss < price {
		return decimal.NewFromFloat(price - *dec.StopLoss)
	}
	if atr > 0 {
		return decimal.NewFromFloat(atr).Mul(l.atrStopMult)
	}
	return decimal.Zero
}

func (l *Ledger) orderLocked(symbol string, action types.Action, qty int, price float64) *types.SizedOrder {
	notional, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).Float64()
	return &types.SizedOrder{
		Symbol:   symbol,
		Action:   action,
		Quantity: qty,
		Price:    price,
		Notional: notional,
		Region:   l.region,
		Currency: l.region.Currency(),
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Book holds the two regional ledgers.
type Book struct {
	us    *Ledger
	india *Ledger
}

func NewBook(us, india *Ledger) *Book {
	return &Book{us: us, india: india}
}

// For returns the ledger for a region; US is the default.
func (b *Book) For(region types.Region) *Ledger {
	if region == types.RegionIN {
		return b.india
	}
	return b.us
}
