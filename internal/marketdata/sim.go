// Package marketdata provides the DRY_RUN data source: a deterministic
// simulated provider whose series depend only on the symbol, so repeated
// runs (and tests) see identical data. Live providers plug in behind the
// same interfaces.
package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"trading-agent/internal/types"
)

// Sim implements MarketData, NewsProvider, and EarningsProvider with
// synthetic but internally consistent data.
type Sim struct {
	now func() time.Time
}

func NewSim() *Sim {
	return &Sim{now: time.Now}
}

func seedFor(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64() & math.MaxInt64)
}

// basePrice derives a stable starting price in a plausible band.
func basePrice(symbol string) float64 {
	rng := rand.New(rand.NewSource(seedFor(symbol)))
	return 50 + rng.Float64()*450
}

func (s *Sim) History(ctx context.Context, symbol string, days int) ([]types.Candle, error) {
	if days <= 0 {
		days = 250
	}
	rng := rand.New(rand.NewSource(seedFor(symbol)))
	price := basePrice(symbol)
	out := make([]types.Candle, 0, days)
	start := s.now().AddDate(0, 0, -days)

	for i := 0; i < days; i++ {
		drift := (rng.Float64() - 0.49) * 0.02 // slight upward bias
		open := price
		price = price * (1 + drift)
		high := math.Max(open, price) * (1 + rng.Float64()*0.01)
		low := math.Min(open, price) * (1 - rng.Float64()*0.01)
		out = append(out, types.Candle{
			Ts:    start.AddDate(0, 0, i).Unix(),
			Open:  open,
			High:  high,
			Low:   low,
			Close: price,
			Vol:   float64(1_000_000 + rng.Intn(9_000_000)),
		})
	}
	return out, nil
}

func (s *Sim) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	hist, err := s.History(ctx, symbol, 250)
	if err != nil {
		return 0, err
	}
	return hist[len(hist)-1].Close, nil
}

func (s *Sim) OptionChain(ctx context.Context, symbol string) ([]types.OptionQuote, error) {
	price, err := s.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seedFor(symbol) + 1))
	expiry := s.now().AddDate(0, 0, 14+int(seedFor(symbol)%14)).Format("2006-01-02")

	var chain []types.OptionQuote
	for i := -3; i <= 3; i++ {
		strike := math.Round(price*(1+float64(i)*0.025)/5) * 5
		for _, typ := range []string{"call", "put"} {
			mid := math.Max(0.5, price*0.02*(1+rng.Float64()))
			chain = append(chain, types.OptionQuote{
				Type:         typ,
				Strike:       strike,
				Expiry:       expiry,
				LastPrice:    math.Round(mid*100) / 100,
				Bid:          math.Round(mid*0.97*100) / 100,
				Ask:          math.Round(mid*1.03*100) / 100,
				Volume:       int64(rng.Intn(5000)),
				OpenInterest: int64(rng.Intn(20000)),
				ImpliedVol:   0.2 + rng.Float64()*0.4,
			})
		}
	}
	return chain, nil
}

func (s *Sim) RecentHeadlines(ctx context.Context, query string, limit int) ([]types.NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}
	templates := []string{
		"%s: analysts split after latest quarterly update",
		"%s extends recent range as volumes thin out",
		"Institutional flows turn mixed for %s",
		"%s options activity picks up ahead of expiry",
		"Sector rotation keeps %s in focus",
	}
	date := s.now().Format("2006-01-02")
	out := make([]types.NewsItem, 0, limit)
	for i := 0; i < limit && i < len(templates); i++ {
		out = append(out, types.NewsItem{
			Title:  fmt.Sprintf(templates[i], query),
			Date:   date,
			Source: "sim",
		})
	}
	return out, nil
}

func (s *Sim) NextEarnings(ctx context.Context, symbol string) (types.EarningsInfo, error) {
	// deterministic date in a -5..+39 day band around now
	days := int(seedFor(symbol)%45) - 5
	eps := math.Round(basePrice(symbol)*0.012*100) / 100
	return types.EarningsInfo{
		Symbol:      symbol,
		Known:       true,
		Date:        s.now().AddDate(0, 0, days).Format("2006-01-02"),
		DaysUntil:   days,
		EPSEstimate: &eps,
	}, nil
}
